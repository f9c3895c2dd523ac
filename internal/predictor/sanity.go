package predictor

import (
	"context"
	"os"
	"time"
)

// SanityReport describes runtime checks for the configured backend.
type SanityReport struct {
	Backend    string `json:"backend"`
	LlamaBuilt bool   `json:"llama_built"`
	LlamaFound bool   `json:"llama_found,omitempty"`
	LlamaPath  string `json:"llama_path,omitempty"`
	ServerOK   bool   `json:"server_ok,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OK reports whether the backend looks usable.
func (r SanityReport) OK() bool { return r.Error == "" }

// SanityCheck validates that the backend's external dependency is available.
// It does not mutate state and is safe to call at any time.
func (p *Predictor) SanityCheck(ctx context.Context) SanityReport {
	r := SanityReport{Backend: p.cfg.Backend, LlamaBuilt: llamaBuilt}
	switch p.cfg.Backend {
	case BackendServer:
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		a, ok := p.adapter.(*llamaServerAdapter)
		if !ok {
			return r
		}
		if err := a.client.health(cctx); err != nil {
			r.Error = err.Error()
			return r
		}
		r.ServerOK = true
	case BackendSpawn:
		bin := p.cfg.LlamaBin
		if bin == "" {
			bin = discoverLlamaBin()
		}
		r.LlamaPath = bin
		if bin == "" {
			r.Error = "llama-server not found"
			return r
		}
		fi, err := os.Stat(bin)
		switch {
		case err != nil:
			r.Error = err.Error()
		case fi.IsDir():
			r.Error = "llama path is a directory"
		default:
			r.LlamaFound = true
		}
	default:
		if !llamaBuilt {
			r.Error = errLlamaNotBuilt
		}
	}
	return r
}
