package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vpsdeploy",
	Short: "Provision a Linux VPS and deploy a Node.js app onto it",
	Long: `vpsdeploy turns a fresh VPS into a Node.js host and keeps the app updated.

'provision' installs the runtime, pm2, nginx and firewall rules once;
'deploy' runs the pull-build-restart cycle from the project directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("🚀 vpsdeploy — use --help to see available commands.")
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}
