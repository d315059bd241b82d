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
	"vpsdeploy/internal/deploy"
	"vpsdeploy/internal/execx"
	"vpsdeploy/internal/failfast"
	"vpsdeploy/internal/logger"
	"vpsdeploy/internal/manifest"
)

var (
	depLogs = logger.PackageLogger("🚀 DEPLOY")

	deployTimeout time.Duration
	deployForce   bool
	deployLogs    bool
	deployQuiet   bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Pull, build and restart the app in the current directory",
	Long: `Runs the deployment cycle against an already provisioned host:
stash local changes, fetch and pull the primary branch, install
dependencies, build when a build script exists, then restart (or
start) the app under pm2 and persist the process list.

On any failure after the stash the changes are restored once and the
recent app logs are printed before exiting non-zero.`,
	Run: runDeploy,
}

func init() {
	deployCmd.Flags().DurationVar(&deployTimeout, "timeout", 15*time.Minute, "abort the deploy after this long")
	deployCmd.Flags().BoolVar(&deployForce, "force", false, "delete the pm2 process and start it fresh")
	deployCmd.Flags().BoolVar(&deployLogs, "logs", false, "stream app logs after a successful deploy")
	deployCmd.Flags().BoolVarP(&deployQuiet, "quiet", "q", false, "suppress streamed command output")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), deployTimeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		depLogs.Warn("Received interrupt signal, cancelling deploy...")
	}()

	var stream io.Writer
	if !deployQuiet {
		stream = cmd.OutOrStdout()
	}

	projectDir, err := os.Getwd()
	failfast.Failfast(err, failfast.Error, "Failed to resolve working directory")

	cfg, err := config.Load(projectDir)
	failfast.Failfast(err, failfast.Error, "Failed to load configuration")

	man, err := manifest.Load(projectDir)
	failfast.Failfast(err, failfast.Error, "Project manifest check failed")

	d := deploy.New(execx.NewShellRunner(), cfg, man, stream)
	d.Force = deployForce

	rc, err := d.Run(ctx)
	failfast.Failfast(err, failfast.Error, "Deploy failed")

	depLogs.Success("✅ Deployed %s from %s (build ran: %t)", d.AppName(), rc.Branch, rc.BuildRan)

	if deployLogs {
		if err := d.StreamLogs(ctx); err != nil {
			depLogs.Warn("Log streaming ended: %v", err)
		}
	}
}
