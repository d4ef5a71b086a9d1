// Package transfer implements clipboard and drag-and-drop over
// wl_data_device: inbound offers, outbound sources and the toolkit facing
// clipboard and drag API.
package transfer

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/screens"
)

var log = logger.With("transfer")

// ManagerOptions wire a Manager to the connection.
type ManagerOptions struct {
	Proxy   DeviceProxy
	Screens *screens.Registry
	Serials *input.SerialTracker
	Mods    input.ModifierSource
	Cursor  input.CursorSetter
	Config  config.TransferConfig
}

// Manager is the clipboard and drag source API. It owns the data device
// handler for inbound offers.
type Manager struct {
	proxy   DeviceProxy
	screens *screens.Registry
	serials *input.SerialTracker
	cursor  input.CursorSetter
	cfg     config.TransferConfig
	device  *Device

	writers   conc.WaitGroup
	clipboard *Source
	drag      *Source
}

func NewManager(opts ManagerOptions) *Manager {
	serials := opts.Serials
	if serials == nil {
		serials = &input.SerialTracker{}
	}
	m := &Manager{
		proxy:   opts.Proxy,
		screens: opts.Screens,
		serials: serials,
		cursor:  opts.Cursor,
		cfg:     opts.Config,
		device:  NewDevice(opts.Screens, opts.Mods, opts.Config.ReadTimeout),
	}
	m.device.localDrag = m.ownedDrag
	return m
}

// Device returns the inbound data device handler.
func (m *Manager) Device() *Device {
	return m.device
}

// ClipboardSource returns the source currently serving our selection.
func (m *Manager) ClipboardSource() *Source {
	return m.clipboard
}

// DragSource returns the source of the drag we started last.
func (m *Manager) DragSource() *Source {
	return m.drag
}

// SetText puts text on the clipboard.
func (m *Manager) SetText(text string) error {
	return m.SetDataObject(input.TextData(text))
}

// SetDataObject puts data on the clipboard. The previous clipboard source
// is destroyed once the new one is the selection.
func (m *Manager) SetDataObject(data input.DataObject) error {
	src, err := newSource(m.proxy, sourceOptions{
		data:         data,
		writers:      &m.writers,
		writeTimeout: m.cfg.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	if err := m.proxy.SetSelection(src.proxy, m.serials.Get(input.SerialKeyboardEnter)); err != nil {
		src.dispose()
		return fmt.Errorf("failed to set selection: %w", err)
	}
	prev := m.clipboard
	m.clipboard = src
	src.onDispose = func(s *Source) {
		if m.clipboard == s {
			m.clipboard = nil
		}
	}
	if prev != nil {
		prev.dispose()
	}
	log.Debugf("clipboard: offering %v", src.mimes)
	return nil
}

// Clear empties the clipboard.
func (m *Manager) Clear() error {
	if err := m.proxy.SetSelection(nil, m.serials.Get(input.SerialKeyboardEnter)); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	if m.clipboard != nil {
		m.clipboard.dispose()
	}
	return nil
}

// owned returns our own clipboard data while we hold the selection. Reading
// it through the compositor would need the dispatch goroutine we may be on.
func (m *Manager) owned() input.DataObject {
	if m.clipboard == nil || m.clipboard.disposed {
		return nil
	}
	return m.clipboard.data
}

// ownedDrag returns the data of the drag we started while it runs.
func (m *Manager) ownedDrag() input.DataObject {
	if m.drag == nil || m.drag.disposed {
		return nil
	}
	return m.drag.data
}

// Text returns the clipboard text, empty when there is none or the
// transfer failed.
func (m *Manager) Text(ctx context.Context) string {
	if data := m.owned(); data != nil {
		text, _ := data.Text()
		return text
	}
	offer := m.device.Selection()
	if offer == nil {
		return ""
	}
	text, err := offer.ReadText(ctx)
	if err != nil {
		log.Debugf("clipboard: read text: %v", err)
		return ""
	}
	return text
}

// Formats lists the clipboard formats.
func (m *Manager) Formats() []string {
	if data := m.owned(); data != nil {
		return data.Formats()
	}
	offer := m.device.Selection()
	if offer == nil {
		return nil
	}
	return offer.Formats()
}

// Data reads one clipboard format.
func (m *Manager) Data(ctx context.Context, format string) (any, bool) {
	if data := m.owned(); data != nil {
		return data.Get(format)
	}
	offer := m.device.Selection()
	if offer == nil {
		return nil, false
	}
	v, err := offer.ReadFormat(ctx, format)
	if err != nil {
		log.Debugf("clipboard: read %s: %v", format, err)
		return nil, false
	}
	return v, true
}

// DoDragDrop starts a drag from the focused window. The completion resolves
// with the effect the target performed, or none when the drag could not
// start or was cancelled.
func (m *Manager) DoDragDrop(data input.DataObject, allowed input.DragEffects) *Completion {
	win, ok := m.screens.ActiveWindow()
	if !ok {
		log.Debug("drag: no active window")
		return Resolved(input.EffectNone)
	}

	src, err := newSource(m.proxy, sourceOptions{
		data:         data,
		drag:         true,
		allowed:      allowed,
		cursor:       m.cursor,
		writers:      &m.writers,
		writeTimeout: m.cfg.WriteTimeout,
	})
	if err != nil {
		log.Warnf("drag: failed to create data source: %v", err)
		return Resolved(input.EffectNone)
	}
	completion := src.Completion()

	if err := m.proxy.StartDrag(src.proxy, win.SurfaceID(), m.serials.Get(input.SerialUserAction)); err != nil {
		log.Warnf("drag: failed to start: %v", err)
		src.dispose()
		return completion
	}
	prev := m.drag
	m.drag = src
	src.onDispose = func(s *Source) {
		if m.drag == s {
			m.drag = nil
		}
	}
	if prev != nil {
		prev.dispose()
	}
	return completion
}

// Wait blocks until every background payload write finished.
func (m *Manager) Wait() {
	m.writers.Wait()
}

// Close drops every source and offer and waits for pending writes.
func (m *Manager) Close() {
	if m.clipboard != nil {
		m.clipboard.dispose()
	}
	if m.drag != nil {
		m.drag.dispose()
	}
	m.device.Close()
	m.Wait()
}
