package weave

import (
	"log/slog"
	"time"

	"github.com/osier-labs/weave/internal/domain"
)

type Config = domain.Config

type EngineConfig = domain.EngineConfig

type HTTPConfig = domain.HTTPConfig

type ScriptConfig = domain.ScriptConfig

type GitHubConfig = domain.GitHubConfig

type VectorConfig = domain.VectorConfig

func DefaultConfig() *Config {
	return domain.DefaultConfig()
}

type ConfigBuilder struct {
	config *Config
}

func NewConfigBuilder(dataDir string) *ConfigBuilder {
	config := DefaultConfig()
	config.DataDir = dataDir
	return &ConfigBuilder{config: config}
}

func (cb *ConfigBuilder) WithLogger(logger *slog.Logger) *ConfigBuilder {
	cb.config.Logger = logger
	return cb
}

func (cb *ConfigBuilder) WithEngineSettings(maxConcurrent int, nodeTimeout, retryDelay time.Duration) *ConfigBuilder {
	cb.config.Engine.MaxConcurrentExecutions = maxConcurrent
	cb.config.Engine.DefaultNodeTimeout = nodeTimeout
	cb.config.Engine.DefaultRetryDelay = retryDelay
	return cb
}

func (cb *ConfigBuilder) WithMaxLoopIterations(limit int) *ConfigBuilder {
	cb.config.Engine.MaxLoopIterations = limit
	return cb
}

func (cb *ConfigBuilder) WithHTTPSettings(requestTimeout time.Duration, maxResponseBytes int64) *ConfigBuilder {
	cb.config.HTTP.RequestTimeout = requestTimeout
	cb.config.HTTP.MaxResponseBytes = maxResponseBytes
	return cb
}

func (cb *ConfigBuilder) WithScriptBinaries(node, python, shell string) *ConfigBuilder {
	cb.config.Script.NodeBinary = node
	cb.config.Script.PythonBinary = python
	cb.config.Script.ShellBinary = shell
	return cb
}

func (cb *ConfigBuilder) WithScriptTimeout(timeout time.Duration) *ConfigBuilder {
	cb.config.Script.Timeout = timeout
	return cb
}

func (cb *ConfigBuilder) WithScriptEnv(env map[string]string) *ConfigBuilder {
	cb.config.Script.Env = env
	return cb
}

func (cb *ConfigBuilder) WithGitHub(token, apiBaseURL string) *ConfigBuilder {
	cb.config.GitHub.Token = token
	if apiBaseURL != "" {
		cb.config.GitHub.APIBaseURL = apiBaseURL
	}
	return cb
}

func (cb *ConfigBuilder) WithVectorSettings(chunkSize, chunkOverlap, defaultTopK int) *ConfigBuilder {
	cb.config.Vector.ChunkSize = chunkSize
	cb.config.Vector.ChunkOverlap = chunkOverlap
	cb.config.Vector.DefaultTopK = defaultTopK
	return cb
}

func (cb *ConfigBuilder) Build() *Config {
	return cb.config
}
