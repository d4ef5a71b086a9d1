package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/transfer"
	"github.com/bnema/wayplat/internal/wayland"
	"github.com/bnema/wayplat/internal/window"
	"github.com/bnema/wayplat/internal/wlproto"
)

var (
	windowTitle       string
	windowColor       string
	windowWidth       int
	windowHeight      int
	windowAnimate     bool
	windowTransparent bool
	windowCopy        string
	windowActivate    bool
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Open a demo toplevel window",
	Long: `Open a toplevel window filled with a solid colour. The window follows
the compositor's configure and scale events and closes when the compositor
asks it to. With --copy the text is put on the clipboard once the window
gains keyboard focus. With --activate the window asks for focus through
xdg_activation_v1 after its first paint.`,
	RunE: runWindow,
}

func init() {
	windowCmd.Flags().StringVar(&windowTitle, "title", "", "Window title (default from config)")
	windowCmd.Flags().StringVar(&windowColor, "color", "ff3b82f6", "Fill colour as AARRGGBB or RRGGBB hex")
	windowCmd.Flags().IntVar(&windowWidth, "width", 0, "Initial width in logical pixels")
	windowCmd.Flags().IntVar(&windowHeight, "height", 0, "Initial height in logical pixels")
	windowCmd.Flags().BoolVar(&windowAnimate, "animate", false, "Repaint on every frame callback")
	windowCmd.Flags().BoolVar(&windowTransparent, "transparent", false, "Do not declare the surface opaque")
	windowCmd.Flags().StringVar(&windowCopy, "copy", "", "Text to place on the clipboard on focus")
	windowCmd.Flags().BoolVar(&windowActivate, "activate", false, "Ask the compositor to focus the window after its first paint")
	rootCmd.AddCommand(windowCmd)
}

// parseColor accepts RRGGBB or AARRGGBB, with an optional leading '#'.
func parseColor(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return 0, fmt.Errorf("invalid colour %q: want RRGGBB or AARRGGBB", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	if len(s) == 6 {
		v |= 0xff000000
	}
	return uint32(v), nil
}

// animateColor cycles the RGB channels of base at different speeds and
// keeps its alpha.
func animateColor(base uint32, frame int) uint32 {
	r := byte(base>>16) + byte(frame)
	g := byte(base>>8) + byte(frame*2)
	b := byte(base) + byte(frame*3)
	return base&0xff000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func logDragEvent(ctx context.Context, ev *input.DragEvent) {
	if ev.Data == nil {
		logger.Infof("%s at %s", ev.Type, ev.Position)
		return
	}
	formats := ev.Data.Formats()
	logger.Infof("%s at %s, formats %v, effects %d", ev.Type, ev.Position, formats, ev.Effects)
	if ev.Type != input.Drop {
		return
	}
	offer, ok := ev.Data.(*transfer.Offer)
	if !ok {
		return
	}
	// The payload arrives after this handler returns, so read it elsewhere.
	for _, format := range []string{input.FormatText, input.FormatFileNames} {
		if !slices.Contains(formats, format) {
			continue
		}
		format := format
		res := offer.ReadFormatAsync(ctx, format)
		go func() {
			r := <-res
			if r.Err != nil {
				logger.Debugf("Reading dropped %s: %v", format, r.Err)
				return
			}
			logger.Infof("Dropped %s: %v", format, r.Value)
		}()
	}
}

func runWindow(cmd *cobra.Command, args []string) error {
	color, err := parseColor(windowColor)
	if err != nil {
		return err
	}

	client, err := wayland.Connect(config.Get())
	if err != nil {
		return fmt.Errorf("failed to connect to compositor: %w", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderer := client.NewShmRenderer(color)
	var win *window.Window
	frame := 0
	activated := false

	cb := window.Callbacks{
		Paint: func(geom.Rect) {
			if windowActivate && !activated {
				activated = true
				win.Activate()
			}
			if windowAnimate {
				frame++
				renderer.SetColor(animateColor(color, frame))
				win.RequestFrame()
			}
			if err := renderer.Paint(); err != nil {
				logger.Warnf("Paint failed: %v", err)
			}
		},
		Resized: func(size geom.Size, reason window.ResizeReason) {
			logger.Debugf("Resized to %s (%s)", size, reason)
		},
		ScalingChanged: func(scale float64) {
			logger.Infof("Render scale is now %.2f", scale)
		},
		CloseRequested: func() {
			logger.Info("Close requested by compositor")
			win.Destroy()
		},
		Activated: func() {
			logger.Debug("Window activated")
		},
		Deactivated: func() {
			logger.Debug("Window deactivated")
		},
		Closed: cancel,
		Input: func(ev *input.DragEvent) {
			logDragEvent(ctx, ev)
		},
	}

	win, err = client.NewWindow(renderer.Factory(), cb)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	if windowTitle != "" {
		win.SetTitle(windowTitle)
	}
	if windowTransparent {
		win.SetTransparencyLevelHint(window.TransparencyTransparent)
	}
	if windowWidth > 0 && windowHeight > 0 {
		win.Resize(geom.Size{Width: int32(windowWidth), Height: int32(windowHeight)}, window.ResizeApplication)
	}

	if windowCopy != "" {
		copied := false
		client.OnKeyboardFocus(func(id wlproto.SurfaceID) {
			if copied || id != win.SurfaceID() {
				return
			}
			mgr := client.Transfer()
			if mgr == nil {
				logger.Warn("Compositor has no data device manager, cannot copy")
				copied = true
				return
			}
			if err := mgr.SetText(windowCopy); err != nil {
				logger.Warnf("Failed to set clipboard: %v", err)
				return
			}
			copied = true
			logger.Infof("Copied %d bytes to the clipboard", len(windowCopy))
		})
	}

	config.Watch(func(*config.Config) {
		logger.Info("Configuration reloaded, window defaults apply to new windows")
	})

	win.Show()
	logger.Infof("Window %d shown, close it or press Ctrl+C to exit", win.SurfaceID())

	if err := client.Run(ctx); err != nil {
		return err
	}
	if win.State() != window.Destroyed {
		logger.Debug("Interrupted, leaving surface cleanup to the compositor")
	}
	return nil
}
