package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var keyHoldDelay time.Duration

var typeCmd = &cobra.Command{
	Use:   "type <text>...",
	Short: "Type text on the host",
	Long: `Type text on the host keyboard. Arguments are joined with single spaces.

Special keys known to the keymap can be embedded as <Name>, e.g.
"root<Enter>" or "<ArrowUp><Enter>". Unknown bracket names are typed
literally; characters no keymap can produce are skipped.`,
	Example: `  pikvm type 'Hello, World!<Enter>'`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := inputClient(cmd)
		if err != nil {
			return err
		}
		return client.Keyboard.SendText(strings.Join(args, " "))
	},
}

var keyCmd = &cobra.Command{
	Use:   "key <name>...",
	Short: "Tap one or more keys in sequence",
	Example: `  pikvm key Enter
  pikvm key --hold 2s Delete`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := inputClient(cmd)
		if err != nil {
			return err
		}
		for _, name := range args {
			if err := client.Keyboard.Tap(name, keyHoldDelay); err != nil {
				return err
			}
		}
		return nil
	},
}

var hotkeyCmd = &cobra.Command{
	Use:   "hotkey <combo>",
	Short: "Press a key combination such as Ctrl+Alt+T",
	Long: `Press every key of the combination in order, then release them in
reverse order. A literal plus key is written as a trailing "++".`,
	Example: `  pikvm hotkey Ctrl+Alt+T
  pikvm hotkey Ctrl++`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := inputClient(cmd)
		if err != nil {
			return err
		}
		return client.Keyboard.Combo(args[0])
	},
}

var chordCmd = &cobra.Command{
	Use:   "chord [name]",
	Short: "Send a named chord (default: ctrl-alt-delete)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "ctrl-alt-delete"
		if len(args) == 1 {
			name = args[0]
		}
		client, err := inputClient(cmd)
		if err != nil {
			return err
		}
		return client.Keyboard.SendChord(name)
	},
}

func init() {
	rootCmd.AddCommand(typeCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(hotkeyCmd)
	rootCmd.AddCommand(chordCmd)
	keyCmd.Flags().DurationVar(&keyHoldDelay, "hold", 0, "how long each key stays down (default: key delay)")
}
