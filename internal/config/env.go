package config

import (
	"strconv"
	"strings"
)

// Getenv matches os.Getenv; tests pass a map-backed lookup.
type Getenv func(string) string

// ApplyEnv overlays environment variables on cfg. The unprefixed names are
// the ones the original deployment used and are kept for compatibility.
func ApplyEnv(cfg Config, getenv Getenv) Config {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					*dst = n
					return
				}
			}
		}
	}

	str(&cfg.Addr, "MODELGATE_ADDR")
	if cfg.Addr == Defaults().Addr {
		if p := strings.TrimSpace(getenv("SERVER_PORT")); p != "" {
			if _, err := strconv.Atoi(p); err == nil {
				cfg.Addr = ":" + p
			}
		}
	}
	str(&cfg.ModelsDir, "DIR_MODELS", "MODELGATE_MODELS_DIR")
	str(&cfg.ModelSuffix, "MODEL_SUFFIX", "MODELGATE_MODEL_SUFFIX")
	num(&cfg.IdleTimeoutSec, "MODELGATE_IDLE_TIMEOUT", "MODEL_LIFETIME", "SERVER_LIFETIME")
	num(&cfg.ReapIntervalSec, "MODELGATE_REAP_INTERVAL")
	str(&cfg.BackendMode, "MODELGATE_BACKEND_MODE")
	str(&cfg.BackendCmd, "SERVER_CMD", "MODELGATE_BACKEND_CMD")
	str(&cfg.BackendArgs, "MODELGATE_BACKEND_ARGS")
	str(&cfg.BackendHost, "MODELGATE_BACKEND_HOST")
	num(&cfg.PortBase, "MODELGATE_PORT_BASE", "SERVER_PORT")
	num(&cfg.MaxReadyAttempts, "MODELGATE_MAX_READY_ATTEMPTS")
	num(&cfg.ReadyIntervalMS, "MODELGATE_READY_INTERVAL_MS")
	num(&cfg.StopTimeoutSec, "MODELGATE_STOP_TIMEOUT")
	num(&cfg.ShutdownGraceSec, "MODELGATE_SHUTDOWN_GRACE")
	num(&cfg.MaxQueueDepth, "MODELGATE_MAX_QUEUE_DEPTH")
	num(&cfg.MaxWaitSec, "MODELGATE_MAX_WAIT")
	num(&cfg.LlamaCtx, "MODELGATE_LLAMA_CTX")
	num(&cfg.LlamaThreads, "MODELGATE_LLAMA_THREADS")
	num(&cfg.LlamaGPULayers, "MODELGATE_LLAMA_GPU_LAYERS")
	str(&cfg.LogLevel, "MODELGATE_LOG_LEVEL")
	if v := strings.ToLower(strings.TrimSpace(getenv("MODELGATE_CORS_ENABLED"))); v != "" {
		cfg.CORSEnabled = v == "1" || v == "true" || v == "yes"
	}
	if v := getenv("MODELGATE_CORS_ORIGINS"); strings.TrimSpace(v) != "" {
		cfg.CORSOrigins = SplitCSV(v)
	}
	if v := strings.TrimSpace(getenv("MODELGATE_MAX_BODY_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxBodyBytes = n
		}
	}
	return cfg
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
