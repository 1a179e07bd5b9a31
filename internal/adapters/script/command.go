package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/osier-labs/weave/internal/domain"
	"github.com/osier-labs/weave/internal/ports"
)

// CommandRunner spawns os_command nodes directly, without a shell. The
// command and arguments arrive pre-interpolated from the executor.
type CommandRunner struct {
	logger *slog.Logger
}

func NewCommandRunner(logger *slog.Logger) *CommandRunner {
	return &CommandRunner{logger: logger.With("component", "command-runner")}
}

func (r *CommandRunner) Run(ctx context.Context, cfg *domain.OSCommandConfig) (*ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if cfg.WorkingDir != "" {
		cmd.Dir = cfg.WorkingDir
	}
	env := os.Environ()
	for key, value := range cfg.Env {
		env = append(env, key+"="+value)
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	if cfg.CaptureOutput {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	r.logger.Debug("running command", "command", cfg.Command, "args", cfg.Args)
	err := cmd.Run()

	result := &ports.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("command %q exited with code %d", cfg.Command, result.ExitCode)
		}
		if ctx.Err() != nil {
			return result, fmt.Errorf("command interrupted: %w", ctx.Err())
		}
		return result, fmt.Errorf("command %q failed to start: %w", cfg.Command, err)
	}
	return result, nil
}
