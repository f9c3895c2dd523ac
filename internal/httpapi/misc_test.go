package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"predictd/internal/predictor"
)

func errTooBusyForTest() error { return predictor.ErrTooBusy() }

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	SetDefaultLogLevel("error")
	defer SetDefaultLogLevel("info")
	if got := requestLogLevel(httptest.NewRequest("GET", "/x", nil)); got != LevelError {
		t.Fatalf("default: %v", got)
	}
	if got := requestLogLevel(httptest.NewRequest("GET", "/x?log=debug", nil)); got != LevelDebug {
		t.Fatalf("query override: %v", got)
	}
	if got := requestLogLevel(httptest.NewRequest("GET", "/x?log=1", nil)); got != LevelDebug {
		t.Fatalf("?log=1: %v", got)
	}
	r := httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "off")
	if got := requestLogLevel(r); got != LevelOff {
		t.Fatalf("header override: %v", got)
	}
}

func TestSetters(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)

	SetPredictTimeoutSeconds(-5)
	if predictTimeout != 0 {
		t.Fatalf("expected 0, got %s", predictTimeout)
	}
	SetPredictTimeoutSeconds(3)
	if predictTimeout != 3*time.Second {
		t.Fatalf("expected 3s, got %s", predictTimeout)
	}
	SetPredictTimeoutSeconds(0)
}

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	for _, first := range []bool{true, false} {
		a, ac := context.WithCancel(context.Background())
		b, bc := context.WithCancel(context.Background())
		j, cancelJ := joinContexts(a, b)
		if first {
			ac()
		} else {
			bc()
		}
		select {
		case <-j.Done():
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("joined context did not cancel (first=%v)", first)
		}
		cancelJ()
		ac()
		bc()
	}
}

func TestBaseContextCancelsPredictions(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	// nolint:staticcheck // SA1012: nil restores Background
	defer SetBaseContext(nil)
	svc := &mockService{waitCtx: true}
	time.AfterFunc(20*time.Millisecond, cancel)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- postPrediction(t, NewMux(svc), `{"input":{"prompt":"x"}}`) }()
	select {
	case w := <-done:
		// shutdown drops the response instead of reporting a failure
		if w.Body.Len() != 0 {
			t.Fatalf("unexpected body on shutdown: %s", w.Body.String())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("prediction not canceled by base context")
	}
}

func TestMountSwagger_NoPanic(t *testing.T) {
	MountSwagger(chi.NewRouter())
}
