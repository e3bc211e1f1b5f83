package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pikvm/internal/network"
)

var (
	discoverSubnet      string
	discoverScheme      string
	discoverPort        int
	discoverTimeout     time.Duration
	discoverConcurrency int
	discoverJSON        bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan the local /24 network for PiKVM appliances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := GetApp()
		if err != nil {
			return err
		}

		hosts, err := network.ScanLAN(cmd.Context(), network.ScanOptions{
			Subnet:      discoverSubnet,
			Scheme:      discoverScheme,
			Port:        discoverPort,
			Timeout:     discoverTimeout,
			Concurrency: discoverConcurrency,
		}, a.Log)
		if err != nil {
			return err
		}

		if discoverJSON {
			return printJSON(cmd.OutOrStdout(), hosts)
		}
		if len(hosts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No appliances found")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tSCHEME\tSTATUS")
		for _, h := range hosts {
			fmt.Fprintf(w, "%s\t%s\t%d\n", h.IP, h.Scheme, h.Status)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	flags := discoverCmd.Flags()
	flags.StringVar(&discoverSubnet, "subnet", "", "subnet prefix such as 192.168.1 (default: local subnet)")
	flags.StringVar(&discoverScheme, "scheme", "https", "http or https")
	flags.IntVar(&discoverPort, "port", 0, "probe port (default: scheme port)")
	flags.DurationVar(&discoverTimeout, "timeout", network.DefaultProbeTimeout, "per-host probe timeout")
	flags.IntVar(&discoverConcurrency, "concurrency", network.DefaultScanConcurrency, "hosts probed at once")
	flags.BoolVar(&discoverJSON, "json", false, "print results as JSON")
}
