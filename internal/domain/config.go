package domain

import (
	"log/slog"
	"time"
)

// Config is the explicit configuration threaded into the engine's
// constructor and passed down to collaborators. Nothing is read from
// ambient globals at call time.
type Config struct {
	// DataDir is where badger keeps workflow definitions, execution
	// history and vector indexes. Empty means in-memory storage.
	DataDir string       `json:"data_dir" yaml:"data_dir"`
	Logger  *slog.Logger `json:"-" yaml:"-"`

	Engine EngineConfig  `json:"engine" yaml:"engine"`
	HTTP   HTTPConfig    `json:"http" yaml:"http"`
	Script ScriptConfig  `json:"script" yaml:"script"`
	GitHub GitHubConfig  `json:"github" yaml:"github"`
	Vector VectorConfig  `json:"vector" yaml:"vector"`
}

type EngineConfig struct {
	// MaxConcurrentExecutions bounds the active-execution registry;
	// zero means unbounded.
	MaxConcurrentExecutions int `json:"max_concurrent_executions" yaml:"max_concurrent_executions"`
	// DefaultNodeTimeout applies to nodes with no timeout of their own;
	// zero means no timeout.
	DefaultNodeTimeout time.Duration `json:"default_node_timeout" yaml:"default_node_timeout"`
	// DefaultRetryDelay seeds retry policies that omit initial_delay.
	DefaultRetryDelay time.Duration `json:"default_retry_delay" yaml:"default_retry_delay"`
	// MaxLoopIterations caps loop nodes that declare no cap of their own.
	MaxLoopIterations int `json:"max_loop_iterations" yaml:"max_loop_iterations"`
}

type HTTPConfig struct {
	RequestTimeout   time.Duration `json:"request_timeout" yaml:"request_timeout"`
	MaxResponseBytes int64         `json:"max_response_bytes" yaml:"max_response_bytes"`
}

type ScriptConfig struct {
	NodeBinary   string            `json:"node_binary" yaml:"node_binary"`
	PythonBinary string            `json:"python_binary" yaml:"python_binary"`
	ShellBinary  string            `json:"shell_binary" yaml:"shell_binary"`
	Timeout      time.Duration     `json:"timeout" yaml:"timeout"`
	Env          map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

type GitHubConfig struct {
	Token      string `json:"token" yaml:"token"`
	APIBaseURL string `json:"api_base_url" yaml:"api_base_url"`
}

type VectorConfig struct {
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`
	DefaultTopK  int `json:"default_top_k" yaml:"default_top_k"`
}

func DefaultConfig() *Config {
	return &Config{
		Logger: slog.Default(),
		Engine: EngineConfig{
			MaxConcurrentExecutions: 0,
			DefaultNodeTimeout:      0,
			DefaultRetryDelay:       time.Second,
			MaxLoopIterations:       100,
		},
		HTTP: HTTPConfig{
			RequestTimeout:   30 * time.Second,
			MaxResponseBytes: 8 << 20,
		},
		Script: ScriptConfig{
			NodeBinary:   "node",
			PythonBinary: "python3",
			ShellBinary:  "sh",
			Timeout:      60 * time.Second,
		},
		GitHub: GitHubConfig{
			APIBaseURL: "https://api.github.com",
		},
		Vector: VectorConfig{
			ChunkSize:    512,
			ChunkOverlap: 64,
			DefaultTopK:  5,
		},
	}
}
