package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cssync",
	Short: "Write browser inspector CSS edits back into source files",
	Long: `cssync runs a local agent the browser extension talks to.
Edits made in the inspector are matched against the rules of your source
stylesheets and spliced back in place, byte-for-byte outside the one rule
that changed.`,
	// Default behavior: run serve when no subcommand is given. loadConfig
	// must be called here because PreRunE of serveCmd is not triggered when
	// delegating via rootCmd.RunE.
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return runServe(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress all output")
	rootCmd.PersistentFlags().Bool("color", false, "Force color output")
	rootCmd.PersistentFlags().String("config", ".cssync.yaml", "Config file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
