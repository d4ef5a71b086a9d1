package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/wayplat/internal/registry"
	"github.com/bnema/wayplat/internal/screens"
)

// ScreensMsg carries a fresh snapshot of the committed screens.
type ScreensMsg struct {
	Screens []screens.Screen
}

// GlobalMsg reports a global appearing or disappearing.
type GlobalMsg struct {
	Global  registry.Global
	Removed bool
	At      time.Time
}

// ErrMsg ends the watch with an error.
type ErrMsg struct {
	Err error
}

// WatchModel shows the live screen table and the registry events feeding it.
type WatchModel struct {
	spinner   spinner.Model
	screens   []screens.Screen
	globals   int
	events    []string
	maxEvents int
	err       error
	quitting  bool
}

// NewWatchModel creates the watch UI model
func NewWatchModel() *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle
	return &WatchModel{
		spinner:   s,
		maxEvents: 10,
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case ScreensMsg:
		m.screens = msg.Screens
	case GlobalMsg:
		if msg.Removed {
			m.globals--
		} else {
			m.globals++
		}
		m.addEvent(msg)
	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *WatchModel) addEvent(msg GlobalMsg) {
	icon := SuccessStyle.Render(IconAdded)
	if msg.Removed {
		icon = ErrorStyle.Render(IconRemoved)
	}
	at := msg.At
	if at.IsZero() {
		at = time.Now()
	}
	line := fmt.Sprintf("%s %s %s v%d (global %d)", SubtleStyle.Render(at.Format("15:04:05")), icon, msg.Global.Interface, msg.Global.Version, msg.Global.Name)
	m.events = append(m.events, line)
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
}

// Err is the error that ended the watch, if any.
func (m *WatchModel) Err() error {
	return m.err
}

func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("wayplat watch"))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(IconError+" "+m.err.Error()) + "\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("%s watching %d globals, %d screens\n\n", m.spinner.View(), m.globals, len(m.screens)))
	b.WriteString(RenderScreens(m.screens))
	b.WriteString("\n\n")
	if len(m.events) > 0 {
		b.WriteString(TextStyle.Render("Recent events") + "\n")
		b.WriteString(CreateSeparator(40, ""))
		b.WriteString("\n")
		for _, e := range m.events {
			b.WriteString(e + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(SubtleStyle.Render("q: quit"))
	return b.String()
}
