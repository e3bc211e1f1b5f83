package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	snapshotOutput string
	snapshotOCR    bool
)

var streamerCmd = &cobra.Command{
	Use:   "streamer",
	Short: "Inspect the video streamer",
}

var streamerStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show streamer state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		state, err := rest.Streamer().State(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), state)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a JPEG of the current screen, or print its text with --ocr",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		if snapshotOCR {
			text, err := rest.Streamer().SnapshotText(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		}

		data, err := rest.Streamer().Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		if snapshotOutput == "" || snapshotOutput == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(snapshotOutput, data, 0644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d bytes to %s\n", len(data), snapshotOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(streamerCmd)
	streamerCmd.AddCommand(streamerStateCmd)
	streamerCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "snapshot.jpg", "output file, - for stdout")
	snapshotCmd.Flags().BoolVar(&snapshotOCR, "ocr", false, "print the recognized screen text instead")
}
