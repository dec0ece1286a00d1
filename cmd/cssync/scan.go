package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stylebridge/cssync"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index the configured root once and report what was found",
	Long: `Walk the root directory, parse every discovered stylesheet and print
a summary. Useful to verify the root and deny-list behave as expected
before pointing the extension at the agent.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.String("root", "", "Root directory CSS files are discovered under")
}

func runScan(_ *cobra.Command, _ []string) error {
	logger := newLogger()
	cfg := buildServiceConfig()

	svc := cssync.New(logger)
	defer svc.Close()
	if err := svc.Configure(cfg); err != nil {
		return err
	}

	useColors := getBoolWithFallback("color", "color", false)
	status := svc.Status()
	cssync.WriteStatus(os.Stdout, status, useColors)
	if getBoolWithFallback("verbose", "verbose", false) {
		cssync.WriteIndexedFiles(os.Stdout, svc.Index().FilesUnder(status.RootPath), useColors)
	}
	return nil
}
