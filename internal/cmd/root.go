package cmd

import (
	"github.com/spf13/cobra"
)

const (
	groupPicker = "picker"
	groupSetup  = "setup"
)

var rootCmd = &cobra.Command{
	Use:   "nvpick",
	Short: "Floating list pickers for the terminal and Neovim",
	Long: `nvpick - floating list pickers for the terminal and Neovim
  - pick a line from a list, or type a new one
  - keep a per-project list of commands and run the chosen one`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyColorMode()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Colorize output: auto, always, never")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupPicker, Title: "Pickers:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(nvimCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
}
