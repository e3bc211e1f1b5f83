package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var logSeek time.Duration

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show appliance system information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		info, err := rest.Info(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Check the configured credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		ok, err := rest.AuthCheck(cmd.Context())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("authentication failed for user %q", rest.Credentials().Username)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Authenticated")
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the kvmd log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		text, err := rest.Log(cmd.Context(), logSeek)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print the Prometheus metrics export",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		text, err := rest.Metrics(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(metricsCmd)
	logCmd.Flags().DurationVar(&logSeek, "seek", 0, "only entries newer than this")
}
