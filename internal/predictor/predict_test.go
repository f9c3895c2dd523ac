package predictor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"predictd/pkg/types"
)

func TestPredict_DefaultsOneSequence(t *testing.T) {
	fa := &fakeAdapter{}
	p := readyPredictor(t, fa, nil)

	res, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "Once upon a time"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(res.Output) != 1 {
		t.Fatalf("want 1 output, got %d", len(res.Output))
	}
	if !strings.HasPrefix(res.Output[0], "Once upon a time") || len(res.Output[0]) <= len("Once upon a time") {
		t.Fatalf("output should extend the prompt: %q", res.Output[0])
	}
	if res.PromptTokens != 4 {
		t.Fatalf("prompt tokens = %d", res.PromptTokens)
	}
	calls := fa.generateCalls()
	if len(calls) != 1 {
		t.Fatalf("generate calls = %d", len(calls))
	}
	c := calls[0]
	if c.MaxTokens != 46 || c.Temperature != 0.75 || c.TopP != 1 || c.RepeatPenalty != 1 || c.Seed != -1 {
		t.Fatalf("unexpected sample params: %+v", c)
	}
}

func TestPredict_NSequencesInOrder(t *testing.T) {
	fa := &fakeAdapter{}
	p := readyPredictor(t, fa, nil)

	res, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "hello", N: intp(5), Seed: int64p(7), MaxLength: intp(4)})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(res.Output) != 5 {
		t.Fatalf("want 5 outputs, got %d", len(res.Output))
	}
	for i, c := range fa.generateCalls() {
		if c.Seed != 7+i {
			t.Fatalf("sequence %d seed = %d", i, c.Seed)
		}
		if c.MaxTokens != 3 {
			t.Fatalf("sequence %d budget = %d", i, c.MaxTokens)
		}
	}
}

func TestPredict_FixedSeedReproducible(t *testing.T) {
	p := readyPredictor(t, &fakeAdapter{}, nil)
	in := types.PredictionInput{Prompt: "a b", N: intp(2), Seed: int64p(42), MaxLength: intp(10)}
	a, err := p.Predict(testCtx(t), in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := p.Predict(testCtx(t), in)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	for i := range a.Output {
		if a.Output[i] != b.Output[i] {
			t.Fatalf("output %d differs: %q vs %q", i, a.Output[i], b.Output[i])
		}
	}
}

func TestPredict_PromptFillingMaxLengthRejected(t *testing.T) {
	fa := &fakeAdapter{}
	p := readyPredictor(t, fa, nil)
	for _, maxLen := range []int{3, 5} {
		invalid := testutil.ToFloat64(predictionsTotal.WithLabelValues("invalid"))
		res, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "one two three four five", N: intp(3), MaxLength: intp(maxLen)})
		if !IsInvalidInput(err) || InvalidField(err) != "max_length" {
			t.Fatalf("max_length=%d: expected max_length error, got %v (output %q)", maxLen, err, res.Output)
		}
		if len(res.Output) != 0 {
			t.Fatalf("max_length=%d: output = %q", maxLen, res.Output)
		}
		if got := testutil.ToFloat64(predictionsTotal.WithLabelValues("invalid")); got != invalid+1 {
			t.Fatalf("invalid counter = %v, want %v", got, invalid+1)
		}
	}
	if n := len(fa.generateCalls()); n != 0 {
		t.Fatalf("Generate should not run, ran %d times", n)
	}
	if st := p.Status(); st.FailuresTotal != 0 || st.PredictionsTotal != 0 {
		t.Fatalf("counters = %d/%d", st.PredictionsTotal, st.FailuresTotal)
	}
	// One token of room is enough to decode.
	res, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "one two three four five", MaxLength: intp(6)})
	if err != nil || len(res.Output) != 1 {
		t.Fatalf("Predict with room: %v %q", err, res.Output)
	}
}

func TestPredict_InvalidInputBeforeModel(t *testing.T) {
	fa := &fakeAdapter{}
	p := readyPredictor(t, fa, nil)
	before := testutil.ToFloat64(predictionsTotal.WithLabelValues("invalid"))
	_, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "x", N: intp(0)})
	if !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(fa.generateCalls()) != 0 {
		t.Fatalf("model must not be called")
	}
	if got := testutil.ToFloat64(predictionsTotal.WithLabelValues("invalid")) - before; got != 1 {
		t.Fatalf("invalid counter delta = %v", got)
	}
}

func TestPredict_NotReady(t *testing.T) {
	p := newTestPredictor(t, &fakeAdapter{}, nil)
	_, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "x"})
	if !IsNotReady(err) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestPredict_DecodeErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	p := readyPredictor(t, &fakeAdapter{genErr: boom}, nil)
	before := testutil.ToFloat64(predictionsTotal.WithLabelValues("failed"))
	_, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := testutil.ToFloat64(predictionsTotal.WithLabelValues("failed")) - before; got != 1 {
		t.Fatalf("failed counter delta = %v", got)
	}
	if st := p.Status(); st.FailuresTotal != 1 || st.PredictionsTotal != 0 {
		t.Fatalf("status counters: %+v", st)
	}
}

func TestPredict_TokenizeErrorPropagates(t *testing.T) {
	p := readyPredictor(t, &fakeAdapter{tokErr: errors.New("bad vocab")}, nil)
	_, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "tokenize") {
		t.Fatalf("expected tokenize error, got %v", err)
	}
}

func TestPredict_CanceledContext(t *testing.T) {
	p := readyPredictor(t, &fakeAdapter{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Predict(ctx, types.PredictionInput{Prompt: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPredict_PublishesEvents(t *testing.T) {
	pub := NewMemoryPublisher()
	p := readyPredictor(t, &fakeAdapter{}, func(c *Config) { c.Publisher = pub })
	if _, err := p.Predict(testCtx(t), types.PredictionInput{Prompt: "x"}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	names := pub.Names()
	if len(names) == 0 || names[len(names)-1] != "predict_done" {
		t.Fatalf("events: %v", names)
	}
}
