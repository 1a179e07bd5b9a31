package ports

import (
	"context"

	"github.com/osier-labs/weave/internal/domain"
)

// ScriptRunner evaluates an author-supplied script body in an isolated
// subprocess with the mapped inputs, returning the script's declared
// outputs.
type ScriptRunner interface {
	Run(ctx context.Context, language domain.ScriptLanguage, body string, inputs map[string]interface{}) (map[string]interface{}, error)
}

type CommandResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// CommandRunner spawns an OS command. A non-zero exit is returned as an
// error alongside the captured result.
type CommandRunner interface {
	Run(ctx context.Context, cfg *domain.OSCommandConfig) (*CommandResult, error)
}
