package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vpsdeploy/internal/config"
	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/failfast"
	"vpsdeploy/internal/logger"
	"vpsdeploy/internal/manifest"
	"vpsdeploy/internal/osrelease"
	"vpsdeploy/internal/provision"
)

var (
	provLogs = logger.PackageLogger("🔧 PROVISION")

	provisionTimeout time.Duration
	provisionQuiet   bool
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Prepare this host to run the Node.js app in the current directory",
	Long: `Installs everything the app needs on a fresh Linux VPS.
This command will:
1. Detect the OS family and select its package manager
2. Install base packages, Node.js and pm2
3. Install nginx and render the reverse-proxy site
4. Open firewall ports and register the pm2 startup hook
5. Install the app's npm dependencies`,
	Run: runProvision,
}

func init() {
	provisionCmd.Flags().DurationVar(&provisionTimeout, "timeout", 30*time.Minute, "abort provisioning after this long")
	provisionCmd.Flags().BoolVarP(&provisionQuiet, "quiet", "q", false, "suppress streamed command output")
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		provLogs.Warn("Received interrupt signal, cancelling provisioning...")
	}()

	var stream io.Writer
	if !provisionQuiet {
		stream = cmd.OutOrStdout()
	}

	projectDir, err := os.Getwd()
	failfast.Failfast(err, failfast.Error, "Failed to resolve working directory")

	cfg, err := config.Load(projectDir)
	failfast.Failfast(err, failfast.Error, "Failed to load configuration")

	man, err := manifest.Load(projectDir)
	failfast.Failfast(err, failfast.Error, "Project manifest check failed")

	// Detected once; every later step branches on the same profile.
	profile, err := osrelease.Detect()
	failfast.Failfast(err, failfast.Error, "OS detection failed")

	p := provision.New(execx.NewShellRunner(), cfg, man, profile, stream)
	err = p.Run(ctx)
	failfast.Failfast(err, failfast.Error, "Provisioning failed")

	provLogs.Success("✅ Host ready for %s", p.AppName())
}
