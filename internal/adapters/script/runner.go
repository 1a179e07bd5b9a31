package script

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/goccy/go-json"

	"github.com/osier-labs/weave/internal/domain"
)

// jsHarness reads an envelope {body, inputs} from stdin, evaluates the
// body with `input` bound and an empty `output` object, and prints the
// final output as JSON. Passing the body inside the envelope instead of
// on the command line sidesteps shell quoting entirely.
const jsHarness = `
const fs = require('fs');
const envelope = JSON.parse(fs.readFileSync(0, 'utf8'));
const fn = new Function('input', 'output', envelope.body);
const output = {};
const returned = fn(envelope.inputs || {}, output);
if (returned !== undefined && Object.keys(output).length === 0) {
    process.stdout.write(JSON.stringify({result: returned}));
} else {
    process.stdout.write(JSON.stringify(output));
}
`

// pyHarness mirrors jsHarness for python: the body runs with `input` and
// `output` in scope and whatever lands in `output` is the node's result.
const pyHarness = `
import json, sys
envelope = json.load(sys.stdin)
scope = {"input": envelope.get("inputs") or {}, "output": {}}
exec(envelope["body"], scope)
json.dump(scope["output"], sys.stdout)
`

type envelope struct {
	Body   string                 `json:"body"`
	Inputs map[string]interface{} `json:"inputs"`
}

// Runner executes script bodies in language subprocesses. Each run is a
// fresh process; state never leaks between nodes.
type Runner struct {
	cfg    domain.ScriptConfig
	logger *slog.Logger
}

func NewRunner(cfg domain.ScriptConfig, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger.With("component", "script-runner"),
	}
}

func (r *Runner) Run(ctx context.Context, language domain.ScriptLanguage, body string, inputs map[string]interface{}) (map[string]interface{}, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	switch language {
	case domain.ScriptLanguageJavaScript:
		return r.runHarness(ctx, r.cfg.NodeBinary, []string{"-e", jsHarness}, body, inputs)
	case domain.ScriptLanguagePython:
		return r.runHarness(ctx, r.cfg.PythonBinary, []string{"-c", pyHarness}, body, inputs)
	case domain.ScriptLanguageShell:
		return r.runShell(ctx, body, inputs)
	default:
		return nil, fmt.Errorf("script language %q: %w", language, domain.ErrInvalidConfig)
	}
}

func (r *Runner) runHarness(ctx context.Context, binary string, args []string, body string, inputs map[string]interface{}) (map[string]interface{}, error) {
	stdin, err := json.Marshal(envelope{Body: body, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("encode script inputs: %w", err)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = r.environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("script interrupted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("script failed: %w: %s", err, firstLine(stderr.String()))
	}

	out := stdout.Bytes()
	if len(bytes.TrimSpace(out)) == 0 {
		return map[string]interface{}{}, nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("script produced non-object output: %w", err)
	}
	return result, nil
}

// runShell exposes inputs as WEAVE_INPUT_<KEY> environment variables and
// treats stdout as the result: a JSON object verbatim, anything else under
// the "stdout" key.
func (r *Runner) runShell(ctx context.Context, body string, inputs map[string]interface{}) (map[string]interface{}, error) {
	cmd := exec.CommandContext(ctx, r.cfg.ShellBinary, "-c", body)
	env := r.environ()
	for key, value := range inputs {
		env = append(env, fmt.Sprintf("WEAVE_INPUT_%s=%s", strings.ToUpper(key), domain.Stringify(value)))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("script interrupted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("shell script failed: %w: %s", err, firstLine(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if strings.HasPrefix(text, "{") {
		var result map[string]interface{}
		if err := json.Unmarshal([]byte(text), &result); err == nil {
			return result, nil
		}
	}
	return map[string]interface{}{"stdout": text}, nil
}

func (r *Runner) environ() []string {
	env := os.Environ()
	for key, value := range r.cfg.Env {
		env = append(env, key+"="+value)
	}
	return env
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
