package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .cssync.yaml config file",
	Long:  `Create a .cssync.yaml configuration file in the current directory with sensible defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(".cssync.yaml"); err == nil && !force {
			return fmt.Errorf(".cssync.yaml already exists (use --force to overwrite)")
		}

		if err := os.WriteFile(".cssync.yaml", []byte(defaultConfig), 0644); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Println("Created .cssync.yaml")
		return nil
	},
}

const defaultConfig = `# cssync configuration

# Root directory CSS files are discovered under
root: web/styles
verbose: false

# Route events from a domain to a different root
# domains:
#   app.example.test: web/app/styles

serve:
  addr: 127.0.0.1:8412
  watch: true
  queue-delay-ms: 50

match:
  threshold: 50  # scores must exceed this to update an existing rule
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
