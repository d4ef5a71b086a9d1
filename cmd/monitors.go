package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/screens"
	"github.com/bnema/wayplat/internal/ui"
	"github.com/bnema/wayplat/internal/wayland"
)

// DisplayInfo represents the display information output
type DisplayInfo struct {
	Monitors []MonitorInfo `json:"monitors"`
	Error    string        `json:"error,omitempty"`
}

// MonitorInfo represents information about a single screen
type MonitorInfo struct {
	ID            uint32  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	X             int32   `json:"x"`
	Y             int32   `json:"y"`
	Width         int32   `json:"width"`
	Height        int32   `json:"height"`
	LogicalWidth  int32   `json:"logical_width"`
	LogicalHeight int32   `json:"logical_height"`
	Primary       bool    `json:"primary"`
	Scale         float64 `json:"scale"`
}

var jsonOutput bool

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "Show screen configuration",
	Long:  `Connect to the compositor and print the screens it has committed.`,
	RunE:  runMonitors,
}

func init() {
	monitorsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(monitorsCmd)
}

func monitorInfo(s screens.Screen) MonitorInfo {
	logical := s.LogicalSize()
	return MonitorInfo{
		ID:            uint32(s.Output),
		Name:          s.Name,
		Description:   s.Description,
		X:             s.Bounds.Min.X,
		Y:             s.Bounds.Min.Y,
		Width:         s.Bounds.Size.Width,
		Height:        s.Bounds.Size.Height,
		LogicalWidth:  logical.Width,
		LogicalHeight: logical.Height,
		Primary:       s.Primary,
		Scale:         s.PixelDensity(),
	}
}

func runMonitors(cmd *cobra.Command, args []string) error {
	client, err := wayland.Connect(config.Get())
	if err != nil {
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(DisplayInfo{Error: err.Error()})
		}
		return fmt.Errorf("failed to connect to compositor: %w", err)
	}
	defer client.Close()

	list := client.Screens().AllScreens()

	if jsonOutput {
		info := DisplayInfo{Monitors: make([]MonitorInfo, len(list))}
		for i, s := range list {
			info.Monitors[i] = monitorInfo(s)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("Screens (%d)", len(list))))
	fmt.Println(ui.RenderScreens(list))
	return nil
}
