package predictor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/artifact"
	"predictd/pkg/types"
)

// fakeAdapter is a lightweight in-memory adapter used for tests. Tokenize
// counts whitespace-separated words; Generate emits one token per budget
// slot, derived from the seed so fixed seeds are reproducible.
type fakeAdapter struct {
	startErr error
	genErr   error
	tokErr   error
	// block, when set, holds Generate until closed
	block chan struct{}

	mu         sync.Mutex
	receivedMP string
	loadParams LoadParams
	calls      []SampleParams
	closed     bool
}

func (f *fakeAdapter) Start(modelPath string, params LoadParams) (InferSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receivedMP = modelPath
	f.loadParams = params
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &fakeSession{f: f}, nil
}

func (f *fakeAdapter) sessionClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeAdapter) generateCalls() []SampleParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SampleParams(nil), f.calls...)
}

type fakeSession struct{ f *fakeAdapter }

func (s *fakeSession) Tokenize(ctx context.Context, text string) (int, error) {
	if s.f.tokErr != nil {
		return 0, s.f.tokErr
	}
	return len(strings.Fields(text)), nil
}

func (s *fakeSession) Generate(ctx context.Context, prompt string, params SampleParams, onToken func(string) error) (FinalResult, error) {
	s.f.mu.Lock()
	s.f.calls = append(s.f.calls, params)
	block := s.f.block
	s.f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		}
	}
	if s.f.genErr != nil {
		return FinalResult{}, s.f.genErr
	}
	seed := params.Seed
	if seed < 0 {
		seed = int(time.Now().UnixNano() % 1000)
	}
	var sb strings.Builder
	for i := 0; i < params.MaxTokens; i++ {
		select {
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		default:
		}
		tok := fmt.Sprintf(" t%d", (seed*31+i)%97)
		sb.WriteString(tok)
		if err := onToken(tok); err != nil {
			return FinalResult{}, err
		}
	}
	return FinalResult{Content: sb.String(), Usage: Usage{CompletionTokens: params.MaxTokens}, FinishReason: "length"}, nil
}

func (s *fakeSession) Close() error {
	s.f.mu.Lock()
	s.f.closed = true
	s.f.mu.Unlock()
	return nil
}

// writeGGUF creates a minimal file with the GGUF magic under dir/<id>/<file>.
func writeGGUF(t *testing.T, dir, id, file string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(id), file)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte("GGUF\x03\x00\x00\x00payload"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

var testRef = artifact.Ref{ModelID: "org/model-GGUF", File: "model.Q4_K_M.gguf"}

// newTestPredictor builds a predictor over a cached artifact and fake adapter.
func newTestPredictor(t *testing.T, fa *fakeAdapter, mut func(*Config)) *Predictor {
	t.Helper()
	dir := t.TempDir()
	writeGGUF(t, dir, testRef.ModelID, testRef.File)
	cfg := Config{
		Artifact: testRef,
		Store:    &artifact.Store{Dir: dir, HubURL: "http://127.0.0.1:1", Logger: zerolog.Nop()},
		Device:   "cpu",
		Logger:   zerolog.Nop(),
	}
	if mut != nil {
		mut(&cfg)
	}
	p := New(cfg)
	p.SetInferenceAdapter(fa)
	return p
}

// readyPredictor is newTestPredictor followed by a successful Setup.
func readyPredictor(t *testing.T, fa *fakeAdapter, mut func(*Config)) *Predictor {
	t.Helper()
	p := newTestPredictor(t, fa, mut)
	if err := p.Setup(testCtx(t)); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func int64p(v int64) *int64     { return &v }

func predictInput(prompt string, n int) types.PredictionInput {
	return types.PredictionInput{Prompt: prompt, N: intp(n)}
}
