package transfer

import (
	"os"
	"time"

	"github.com/sourcegraph/conc"
	"golang.org/x/sys/unix"

	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/wlproto"
)

// Source serves one outbound clipboard selection or drag.
type Source struct {
	proxy        SourceProxy
	data         input.DataObject
	drag         bool
	mimes        []string
	lastAction   wlproto.DndAction
	accepted     string
	completion   *Completion
	cursor       input.CursorSetter
	writers      *conc.WaitGroup
	writeTimeout time.Duration
	disposed     bool
	onDispose    func(s *Source)
}

type sourceOptions struct {
	data         input.DataObject
	drag         bool
	allowed      input.DragEffects
	cursor       input.CursorSetter
	writers      *conc.WaitGroup
	writeTimeout time.Duration
}

// newSource creates the wire source through dev and advertises the MIME
// types of the data object, plus the allowed actions for a drag.
func newSource(dev DeviceProxy, opts sourceOptions) (*Source, error) {
	s := &Source{
		data:         opts.data,
		drag:         opts.drag,
		mimes:        MimeTypesFor(opts.data),
		cursor:       opts.cursor,
		writers:      opts.writers,
		writeTimeout: opts.writeTimeout,
	}
	proxy, err := dev.CreateSource(s.Handle)
	if err != nil {
		return nil, err
	}
	s.proxy = proxy
	for _, m := range s.mimes {
		if err := proxy.Offer(m); err != nil {
			log.Debugf("data source: offer %s: %v", m, err)
		}
	}
	if opts.drag {
		if err := proxy.SetActions(effectsToActions(opts.allowed)); err != nil {
			log.Debugf("data source: set actions: %v", err)
		}
	}
	return s, nil
}

// MimeTypes returns the advertised MIME types.
func (s *Source) MimeTypes() []string {
	return append([]string(nil), s.mimes...)
}

func (s *Source) Data() input.DataObject {
	return s.data
}

func (s *Source) Disposed() bool {
	return s.disposed
}

// LastAction is the action the compositor last negotiated.
func (s *Source) LastAction() wlproto.DndAction {
	return s.lastAction
}

// Completion returns the drag outcome, creating it on first use.
func (s *Source) Completion() *Completion {
	if s.completion == nil {
		s.completion = newCompletion()
		if s.disposed {
			s.completion.resolve(input.EffectNone)
		}
	}
	return s.completion
}

// Handle routes a wl_data_source event.
func (s *Source) Handle(ev SourceEvent) {
	switch e := ev.(type) {
	case Send:
		s.onSend(e.MimeType, e.Fd)
	case Cancelled:
		s.dispose()
	case Action:
		s.onAction(e.Action)
	case DropPerformed:
		if s.completion != nil {
			s.completion.resolve(actionsToEffects(s.lastAction))
		}
	case Finished:
		s.dispose()
	case Target:
		s.accepted = e.MimeType
		log.Debugf("data source: target accepted %q", e.MimeType)
	default:
		log.Debugf("data source: unhandled event %T", ev)
	}
}

// onSend serializes the payload now and writes it in the background. The
// descriptor is closed on every path.
func (s *Source) onSend(mimeType string, fd int) {
	var payload []byte
	if !s.disposed {
		payload = Payload(s.data, mimeType)
	}
	write := func() { writeAndClose(fd, payload, s.writeTimeout) }
	if s.writers == nil {
		write()
		return
	}
	s.writers.Go(write)
}

// writeAndClose writes payload to fd, giving up after timeout, and closes
// fd exactly once.
func writeAndClose(fd int, payload []byte, timeout time.Duration) {
	if len(payload) == 0 {
		unix.Close(fd)
		return
	}
	nonblock := unix.SetNonblock(fd, true) == nil
	f := os.NewFile(uintptr(fd), "wl-source")
	defer f.Close()
	if nonblock && timeout > 0 {
		_ = f.SetWriteDeadline(time.Now().Add(timeout))
	}
	if _, err := f.Write(payload); err != nil {
		log.Debugf("data source: write failed: %v", err)
	}
}

func (s *Source) onAction(action wlproto.DndAction) {
	s.lastAction = action
	if s.cursor == nil {
		return
	}
	switch {
	case action.Has(wlproto.DndActionCopy):
		s.cursor.SetCursor(input.CursorDragCopy)
	case action.Has(wlproto.DndActionMove):
		s.cursor.SetCursor(input.CursorDragMove)
	default:
		s.cursor.SetCursor(input.CursorDefault)
	}
}

// dispose destroys the wire source and resolves a pending drag with no
// effect. It is safe to call more than once.
func (s *Source) dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	if s.proxy != nil {
		if err := s.proxy.Destroy(); err != nil {
			log.Debugf("data source: destroy: %v", err)
		}
	}
	if s.completion != nil {
		s.completion.resolve(input.EffectNone)
	}
	if s.onDispose != nil {
		s.onDispose(s)
	}
}
