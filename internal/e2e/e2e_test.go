package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"predictd/pkg/types"
)

func TestE2E_Predictions_Ready_Status(t *testing.T) {
	srv, p := newStack(t, &llamaStub{}, 4, time.Second)

	// Before setup the API is up but not ready.
	resp, body := httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz expected 503, got %d body=%s", resp.StatusCode, body)
	}
	resp, body = httpPostJSON(t, srv.URL+"/predictions", `{"input":{"prompt":"hello"}}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/predictions before setup: %d body=%s", resp.StatusCode, body)
	}

	if err := p.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	resp, _ = httpGet(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz after setup: %d", resp.StatusCode)
	}

	// Two prompt tokens leave a budget of three generated tokens per sequence.
	resp, body = httpPostJSON(t, srv.URL+"/predictions",
		`{"input":{"prompt":"once upon","n":2,"max_length":5,"seed":7}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/predictions status=%d body=%s", resp.StatusCode, body)
	}
	var pr types.PredictionResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		t.Fatalf("json: %v body=%s", err, body)
	}
	want := []string{"once upon w7 w7 w7", "once upon w8 w8 w8"}
	if pr.Status != types.StatusSucceeded || len(pr.Output) != 2 || pr.Output[0] != want[0] || pr.Output[1] != want[1] {
		t.Fatalf("response = %+v, want output %q", pr, want)
	}
	if pr.ID == "" || pr.Metrics == nil || pr.Metrics.PromptTokens != 2 {
		t.Fatalf("id/metrics missing: %+v", pr)
	}

	resp, body = httpGet(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status status=%d", resp.StatusCode)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v body=%s", err, body)
	}
	if st.State != "ready" || st.Backend != "server" || st.PredictionsTotal != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestE2E_PromptFillingMaxLength422(t *testing.T) {
	srv, p := newStack(t, &llamaStub{}, 4, time.Second)
	if err := p.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	resp, body := httpPostJSON(t, srv.URL+"/predictions",
		`{"input":{"prompt":"a b c d","max_length":2,"n":3}}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Field != "max_length" {
		t.Fatalf("error body = %s (%v)", body, err)
	}
}

func TestE2E_InvalidInput422(t *testing.T) {
	srv, p := newStack(t, &llamaStub{}, 4, time.Second)
	if err := p.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	resp, body := httpPostJSON(t, srv.URL+"/predictions", `{"input":{"prompt":"hi","top_p":0}}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Field != "top_p" {
		t.Fatalf("error body = %s (%v)", body, err)
	}
}

// TestE2E_Backpressure429 verifies a request that cannot reach the model
// within the wait budget is rejected with 429 while another one decodes.
func TestE2E_Backpressure429(t *testing.T) {
	stub := &llamaStub{gate: make(chan struct{}), started: make(chan struct{}, 4)}
	srv, p := newStack(t, stub, 1, 50*time.Millisecond)
	if err := p.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	first := make(chan int, 1)
	go func() {
		resp, _ := httpPostJSON(t, srv.URL+"/predictions", `{"input":{"prompt":"hello","max_length":3}}`)
		first <- resp.StatusCode
	}()
	select {
	case <-stub.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first prediction never reached the model")
	}

	resp, body := httpPostJSON(t, srv.URL+"/predictions", `{"input":{"prompt":"hello","max_length":3}}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request: %d body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "busy") {
		t.Fatalf("429 body = %s", body)
	}

	close(stub.gate)
	select {
	case code := <-first:
		if code != http.StatusOK {
			t.Fatalf("first request: %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first request did not finish")
	}
}
