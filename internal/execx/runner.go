package execx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner abstracts process execution so pipelines can run against the
// live host or against recorded fixtures in tests.
type Runner interface {
	// Run executes a shell command on the local host, returning its
	// combined output. When stream is non-nil the output is also
	// copied there as it arrives.
	Run(ctx context.Context, command string, stream io.Writer) (string, error)
	// RunAs executes a shell command as the given user. When the
	// current process is not privileged the command runs as-is.
	RunAs(ctx context.Context, user, command string, stream io.Writer) (string, error)
	// Exists reports whether a binary is available on PATH.
	Exists(binary string) bool
}

// CommandError wraps a failed command with its captured output.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (ce *CommandError) Error() string {
	out := strings.TrimSpace(ce.Output)
	if out == "" {
		return fmt.Sprintf("command %q failed: %v", ce.Command, ce.Err)
	}
	return fmt.Sprintf("command %q failed: %v: %s", ce.Command, ce.Err, out)
}

func (ce *CommandError) Unwrap() error {
	return ce.Err
}

// ShellRunner executes commands through bash on the local host.
type ShellRunner struct{}

func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

func (sr *ShellRunner) Run(ctx context.Context, command string, stream io.Writer) (string, error) {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	return runCmd(cmd, command, stream)
}

func (sr *ShellRunner) RunAs(ctx context.Context, user, command string, stream io.Writer) (string, error) {
	if os.Geteuid() != 0 || user == "" || user == "root" {
		return sr.Run(ctx, command, stream)
	}
	cmd := exec.CommandContext(ctx, "sudo", "-u", user, "-H", "bash", "-c", command)
	return runCmd(cmd, command, stream)
}

func (sr *ShellRunner) Exists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func runCmd(cmd *exec.Cmd, command string, stream io.Writer) (string, error) {
	var buf bytes.Buffer
	var out io.Writer = &buf
	if stream != nil {
		out = io.MultiWriter(&buf, stream)
	}
	cmd.Stdout = out
	cmd.Stderr = out
	// Never block on an interactive credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "DEBIAN_FRONTEND=noninteractive")

	if err := cmd.Run(); err != nil {
		return buf.String(), &CommandError{Command: command, Output: buf.String(), Err: err}
	}
	return buf.String(), nil
}
