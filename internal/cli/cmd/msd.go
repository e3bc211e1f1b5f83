package cmd

import (
	"github.com/spf13/cobra"
)

var (
	msdCdrom bool
	msdImage string
)

var msdCmd = &cobra.Command{
	Use:   "msd",
	Short: "Manage the emulated mass storage drive",
}

var msdStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show drive state and stored images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		state, err := rest.MSD().State(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), state)
	},
}

var msdParamsCmd = &cobra.Command{
	Use:   "params <image>",
	Short: "Select the image to present, as flash drive or --cdrom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.MSD().SetParams(cmd.Context(), args[0], msdCdrom)
	},
}

var msdConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Attach the drive to the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.MSD().Connect(cmd.Context())
	},
}

var msdDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Detach the drive from the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.MSD().Disconnect(cmd.Context())
	},
}

var msdRemoveCmd = &cobra.Command{
	Use:   "remove <image>",
	Short: "Delete a stored image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.MSD().Remove(cmd.Context(), args[0])
	},
}

var msdResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the MSD subsystem",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.MSD().Reset(cmd.Context())
	},
}

var msdRemoteCmd = &cobra.Command{
	Use:   "remote <url>",
	Short: "Download an image from a URL into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.MSD().WriteRemote(cmd.Context(), args[0], msdImage)
	},
}

var msdUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a local image into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rest, err := restClient()
		if err != nil {
			return err
		}
		return rest.MSD().UploadFile(cmd.Context(), args[0], msdImage)
	},
}

func init() {
	rootCmd.AddCommand(msdCmd)
	msdCmd.AddCommand(msdStateCmd)
	msdCmd.AddCommand(msdParamsCmd)
	msdCmd.AddCommand(msdConnectCmd)
	msdCmd.AddCommand(msdDisconnectCmd)
	msdCmd.AddCommand(msdRemoveCmd)
	msdCmd.AddCommand(msdResetCmd)
	msdCmd.AddCommand(msdRemoteCmd)
	msdCmd.AddCommand(msdUploadCmd)
	msdParamsCmd.Flags().BoolVar(&msdCdrom, "cdrom", false, "present the image as a CD-ROM")
	msdRemoteCmd.Flags().StringVar(&msdImage, "image", "", "stored image name (default: last URL path element)")
	msdUploadCmd.Flags().StringVar(&msdImage, "image", "", "stored image name (default: file name)")
}
