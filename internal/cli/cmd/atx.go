package cmd

import (
	"github.com/spf13/cobra"
)

var atxCmd = &cobra.Command{
	Use:   "atx",
	Short: "Control host power through the ATX board",
}

var atxStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show power and LED state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		state, err := rest.ATX().State(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), state)
	},
}

var atxPowerCmd = &cobra.Command{
	Use:       "power <on|off|off_hard|reset_hard>",
	Short:     "Change the host power state",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "off_hard", "reset_hard"},
	RunE: func(cmd *cobra.Command, args []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.ATX().Power(cmd.Context(), args[0])
	},
}

var atxClickCmd = &cobra.Command{
	Use:       "click <power|power_long|reset>",
	Short:     "Press a front-panel button",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"power", "power_long", "reset"},
	RunE: func(cmd *cobra.Command, args []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.ATX().Click(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(atxCmd)
	atxCmd.AddCommand(atxStateCmd)
	atxCmd.AddCommand(atxPowerCmd)
	atxCmd.AddCommand(atxClickCmd)
}
