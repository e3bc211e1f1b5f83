package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pikvm/pkg/pikvm"
)

var (
	mouseClickDelay time.Duration
	mouseFrameSize  string
)

var mouseCmd = &cobra.Command{
	Use:   "mouse",
	Short: "Move, click and scroll the host pointer",
}

var mouseMoveCmd = &cobra.Command{
	Use:   "move <x> <y>",
	Short: "Move the pointer to a screen pixel",
	Long: `Move the pointer to screen pixel (x, y). The screen size is taken from
a streamer snapshot unless --frame WIDTHxHEIGHT is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid x: %w", err)
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid y: %w", err)
		}
		client, err := inputClient(cmd)
		if err != nil {
			return err
		}
		if err := applyFrameSize(client, mouseFrameSize); err != nil {
			return err
		}
		return client.Mouse.MoveTo(cmd.Context(), x, y)
	},
}

var mouseClickCmd = &cobra.Command{
	Use:       "click [button]",
	Short:     "Click a mouse button (default: left)",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"left", "right", "middle", "up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		button := "left"
		if len(args) == 1 {
			button = args[0]
		}
		client, err := inputClient(cmd)
		if err != nil {
			return err
		}
		return client.Mouse.Click(button, mouseClickDelay)
	},
}

var mouseWheelCmd = &cobra.Command{
	Use:   "wheel <delta>",
	Short: "Scroll the wheel; negative is down",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid delta: %w", err)
		}
		client, err := inputClient(cmd)
		if err != nil {
			return err
		}
		return client.Mouse.Wheel(delta)
	},
}

func init() {
	rootCmd.AddCommand(mouseCmd)
	mouseCmd.AddCommand(mouseMoveCmd)
	mouseCmd.AddCommand(mouseClickCmd)
	mouseCmd.AddCommand(mouseWheelCmd)
	mouseMoveCmd.Flags().StringVar(&mouseFrameSize, "frame", "", "screen size as WIDTHxHEIGHT, skips the snapshot")
	mouseClickCmd.Flags().DurationVar(&mouseClickDelay, "delay", 0, "pause between press and release (default: 50ms)")
}

func applyFrameSize(client *pikvm.Client, frame string) error {
	if frame == "" {
		return nil
	}
	var w, h int
	if _, err := fmt.Sscanf(frame, "%dx%d", &w, &h); err != nil {
		return fmt.Errorf("invalid --frame %q, want WIDTHxHEIGHT: %w", frame, err)
	}
	client.Mouse.SetFrameSize(w, h)
	return nil
}
