package manager

import (
	"os/exec"
	"strings"

	"modelgate/internal/config"
)

// SanityReport describes runtime checks for the configured backend mode.
type SanityReport struct {
	Mode        string `json:"mode"`
	LlamaBuilt  bool   `json:"llama_built"`
	BackendPath string `json:"backend_path,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OK reports whether the selected mode can start backends.
func (r SanityReport) OK() bool { return r.Error == "" }

// SanityCheck validates that the selected backend mode has what it needs:
// the backend executable for subprocess mode, llama support for in-process
// mode. It does not start anything.
func SanityCheck(mode, backendCmd string) SanityReport {
	r := SanityReport{Mode: mode, LlamaBuilt: llamaBuilt}
	switch mode {
	case config.ModeInProcess:
		if !llamaBuilt {
			r.Error = "llama support not built (missing 'llama' build tag)"
		}
	default:
		fields := strings.Fields(backendCmd)
		if len(fields) == 0 {
			r.Error = "backend command is empty"
			return r
		}
		p, err := exec.LookPath(fields[0])
		if err != nil {
			r.Error = err.Error()
			return r
		}
		r.BackendPath = p
	}
	return r
}
