package config

import (
	"fmt"
	"time"
)

// Config holds runtime parameters for the gateway. Durations are stored as
// integer seconds (or milliseconds where noted) so every file format can
// express them.
type Config struct {
	Addr        string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir   string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	ModelSuffix string `json:"model_suffix" yaml:"model_suffix" toml:"model_suffix"`

	IdleTimeoutSec  int `json:"idle_timeout_sec" yaml:"idle_timeout_sec" toml:"idle_timeout_sec"`
	ReapIntervalSec int `json:"reap_interval_sec" yaml:"reap_interval_sec" toml:"reap_interval_sec"`

	// BackendMode selects the resource kind: "subprocess" or "inprocess".
	BackendMode string `json:"backend_mode" yaml:"backend_mode" toml:"backend_mode"`
	BackendCmd  string `json:"backend_cmd" yaml:"backend_cmd" toml:"backend_cmd"`
	// BackendArgs is appended to BackendCmd; {model}, {host}, {port} and {id} are substituted.
	BackendArgs      string `json:"backend_args" yaml:"backend_args" toml:"backend_args"`
	BackendHost      string `json:"backend_host" yaml:"backend_host" toml:"backend_host"`
	PortBase         int    `json:"port_base" yaml:"port_base" toml:"port_base"`
	MaxReadyAttempts int    `json:"max_ready_attempts" yaml:"max_ready_attempts" toml:"max_ready_attempts"`
	ReadyIntervalMS  int    `json:"ready_interval_ms" yaml:"ready_interval_ms" toml:"ready_interval_ms"`
	StopTimeoutSec   int    `json:"stop_timeout_sec" yaml:"stop_timeout_sec" toml:"stop_timeout_sec"`
	ShutdownGraceSec int    `json:"shutdown_grace_sec" yaml:"shutdown_grace_sec" toml:"shutdown_grace_sec"`

	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSec    int `json:"max_wait_sec" yaml:"max_wait_sec" toml:"max_wait_sec"`

	LlamaCtx       int `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads   int `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	LlamaGPULayers int `json:"llama_gpu_layers" yaml:"llama_gpu_layers" toml:"llama_gpu_layers"`

	LogLevel     string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

const (
	ModeSubprocess = "subprocess"
	ModeInProcess  = "inprocess"
)

// Defaults returns the configuration used when nothing else is specified.
func Defaults() Config {
	return Config{
		Addr:             ":8000",
		ModelsDir:        "/models",
		ModelSuffix:      "-Llamafied-Q4_K_M.gguf",
		IdleTimeoutSec:   3600,
		ReapIntervalSec:  60,
		BackendMode:      ModeSubprocess,
		BackendCmd:       "/usr/bin/python3 -m llama_cpp.server",
		BackendArgs:      "--model {model} --host {host} --port {port} --n_gpu_layers -1",
		BackendHost:      "127.0.0.1",
		PortBase:         8000,
		MaxReadyAttempts: 100,
		ReadyIntervalMS:  100,
		StopTimeoutSec:   5,
		ShutdownGraceSec: 10,
		MaxQueueDepth:    32,
		MaxWaitSec:       300,
		LlamaCtx:         2048,
		LlamaGPULayers:   -1,
		LogLevel:         "info",
		CORSOrigins:      []string{"*"},
		MaxBodyBytes:     1 << 20,
	}
}

func (c Config) IdleTimeout() time.Duration  { return time.Duration(c.IdleTimeoutSec) * time.Second }
func (c Config) ReapInterval() time.Duration { return time.Duration(c.ReapIntervalSec) * time.Second }
func (c Config) ReadyInterval() time.Duration {
	return time.Duration(c.ReadyIntervalMS) * time.Millisecond
}
func (c Config) StopTimeout() time.Duration   { return time.Duration(c.StopTimeoutSec) * time.Second }
func (c Config) ShutdownGrace() time.Duration { return time.Duration(c.ShutdownGraceSec) * time.Second }
func (c Config) MaxWait() time.Duration       { return time.Duration(c.MaxWaitSec) * time.Second }

// Validate checks values that would otherwise fail later in confusing ways.
func (c Config) Validate() error {
	switch {
	case c.ModelsDir == "":
		return &ConfigError{Field: "models_dir", Msg: "must not be empty"}
	case c.ModelSuffix == "":
		return &ConfigError{Field: "model_suffix", Msg: "must not be empty"}
	case c.IdleTimeoutSec <= 0:
		return &ConfigError{Field: "idle_timeout_sec", Msg: "must be positive"}
	case c.ReapIntervalSec <= 0:
		return &ConfigError{Field: "reap_interval_sec", Msg: "must be positive"}
	case c.BackendMode != ModeSubprocess && c.BackendMode != ModeInProcess:
		return &ConfigError{Field: "backend_mode", Msg: fmt.Sprintf("unknown mode %q", c.BackendMode)}
	case c.BackendMode == ModeSubprocess && c.BackendCmd == "":
		return &ConfigError{Field: "backend_cmd", Msg: "required in subprocess mode"}
	case c.PortBase < 0 || c.PortBase > 65534:
		return &ConfigError{Field: "port_base", Msg: "out of range"}
	case c.MaxReadyAttempts <= 0:
		return &ConfigError{Field: "max_ready_attempts", Msg: "must be positive"}
	case c.ReadyIntervalMS <= 0:
		return &ConfigError{Field: "ready_interval_ms", Msg: "must be positive"}
	}
	return nil
}

// ConfigError reports a fatal configuration problem detected at startup.
type ConfigError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	s := "config: " + e.Field + ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ConfigError) Unwrap() error { return e.Err }
