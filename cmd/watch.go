package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/registry"
	"github.com/bnema/wayplat/internal/ui"
	"github.com/bnema/wayplat/internal/wayland"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch globals and screens live",
	Long: `Stay connected to the compositor and show the screen layout as it
changes, together with every global that is added or removed.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := wayland.Connect(config.Get())
	if err != nil {
		return fmt.Errorf("failed to connect to compositor: %w", err)
	}
	defer client.Close()

	model := ui.NewWatchModel()

	// Seed with what the startup roundtrips already delivered.
	for _, g := range client.Tracker().Globals() {
		model.Update(ui.GlobalMsg{Global: g, At: time.Now()})
	}
	model.Update(ui.ScreensMsg{Screens: client.Screens().AllScreens()})

	p := tea.NewProgram(model)

	// Callbacks run on the dispatch goroutine, which only starts once the
	// hooks are in place.
	client.Tracker().OnAdded(func(g registry.Global) {
		p.Send(ui.GlobalMsg{Global: g, At: time.Now()})
	})
	client.Tracker().OnRemoved(func(g registry.Global) {
		p.Send(ui.GlobalMsg{Global: g, Removed: true, At: time.Now()})
	})
	client.Screens().OnChanged(func() {
		p.Send(ui.ScreensMsg{Screens: client.Screens().AllScreens()})
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := client.Run(ctx)
		if err != nil {
			p.Send(ui.ErrMsg{Err: err})
		}
		done <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("watch UI failed: %w", err)
	}
	cancel()
	if err := <-done; err != nil {
		logger.Debugf("Dispatch loop ended: %v", err)
	}
	return model.Err()
}
