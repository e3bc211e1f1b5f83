package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	gpioNoWait     bool
	gpioPulseDelay time.Duration
)

var gpioCmd = &cobra.Command{
	Use:   "gpio",
	Short: "Switch and pulse GPIO channels",
}

var gpioStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show GPIO channel state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		state, err := rest.GPIO().State(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), state)
	},
}

var gpioSwitchCmd = &cobra.Command{
	Use:   "switch <channel> <0|1>",
	Short: "Set a channel off or on",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var state bool
		switch args[1] {
		case "0", "off", "false":
		case "1", "on", "true":
			state = true
		default:
			return fmt.Errorf("invalid state %q, want 0 or 1", args[1])
		}
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.GPIO().Switch(cmd.Context(), args[0], state, !gpioNoWait)
	},
}

var gpioPulseCmd = &cobra.Command{
	Use:   "pulse <channel>",
	Short: "Pulse a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.GPIO().Pulse(cmd.Context(), args[0], gpioPulseDelay, !gpioNoWait)
	},
}

func init() {
	rootCmd.AddCommand(gpioCmd)
	gpioCmd.AddCommand(gpioStateCmd)
	gpioCmd.AddCommand(gpioSwitchCmd)
	gpioCmd.AddCommand(gpioPulseCmd)
	gpioCmd.PersistentFlags().BoolVar(&gpioNoWait, "no-wait", false, "return before the channel has changed")
	gpioPulseCmd.Flags().DurationVar(&gpioPulseDelay, "delay", 0, "pulse length (default: channel setting)")
}
