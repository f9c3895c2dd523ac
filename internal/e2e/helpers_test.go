package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/artifact"
	"predictd/internal/httpapi"
	"predictd/internal/predictor"
)

// llamaStub imitates the llama.cpp server endpoints the server backend uses.
// Tokenize counts words. Completions stream one " w<seed>" fragment per
// requested token.
type llamaStub struct {
	// gate, when set, holds every completion until it is closed.
	gate chan struct{}
	// started receives once per completion request.
	started chan struct{}
}

func (s *llamaStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	case "/tokenize":
		var in struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		toks := make([]int, len(strings.Fields(in.Content)))
		for i := range toks {
			toks[i] = i + 1
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tokens": toks})
	case "/v1/completions":
		var in struct {
			MaxTokens int    `json:"max_tokens"`
			Seed      *int64 `json:"seed"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if s.started != nil {
			s.started <- struct{}{}
		}
		if s.gate != nil {
			select {
			case <-s.gate:
			case <-r.Context().Done():
				return
			}
		}
		frag := " wr"
		if in.Seed != nil {
			frag = fmt.Sprintf(" w%d", *in.Seed)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < in.MaxTokens; i++ {
			b, _ := json.Marshal(map[string]any{"choices": []map[string]any{{"text": frag}}})
			fmt.Fprintf(w, "data: %s\n\n", b)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	default:
		http.NotFound(w, r)
	}
}

// newStack starts a llama stub, a predictor on the server backend and the
// HTTP API in front of it. Setup is left to the caller.
func newStack(t *testing.T, stub *llamaStub, depth int, maxWait time.Duration) (*httptest.Server, *predictor.Predictor) {
	t.Helper()
	llama := httptest.NewServer(stub)
	t.Cleanup(llama.Close)

	p := predictor.New(predictor.Config{
		Artifact:      artifact.Ref{ModelID: "acme/tiny-GGUF", File: "tiny.Q4_K_M.gguf"},
		Backend:       predictor.BackendServer,
		ServerURL:     llama.URL,
		MaxQueueDepth: depth,
		MaxWait:       maxWait,
		Logger:        zerolog.Nop(),
	})
	t.Cleanup(func() { _ = p.Close() })

	srv := httptest.NewServer(httpapi.NewMux(p))
	t.Cleanup(srv.Close)
	return srv, p
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
