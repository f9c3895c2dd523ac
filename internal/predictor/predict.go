package predictor

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"predictd/pkg/types"
)

// Predict validates in, waits for the model and decodes params.N sequences.
// Each output is the prompt followed by its continuation. A prompt that
// alone reaches max_length is rejected as invalid max_length without decoding.
func (p *Predictor) Predict(ctx context.Context, in types.PredictionInput) (Result, error) {
	params, err := Normalize(in)
	if err != nil {
		predictionsTotal.WithLabelValues("invalid").Inc()
		return Result{}, err
	}

	p.mu.RLock()
	sess, state := p.session, p.state
	p.mu.RUnlock()
	if state != StateReady || sess == nil {
		return Result{}, notReadyError{state: state}
	}

	release, err := p.beginGeneration(ctx)
	if err != nil {
		if IsTooBusy(err) {
			predictionsTotal.WithLabelValues("busy").Inc()
		}
		return Result{}, err
	}
	defer release()

	// Close may have run while this request was queued.
	p.mu.RLock()
	sess, state = p.session, p.state
	p.mu.RUnlock()
	if state != StateReady || sess == nil {
		return Result{}, notReadyError{state: state}
	}

	start := time.Now()
	res, err := p.generate(ctx, sess, params)
	dur := time.Since(start)
	predictDuration.Observe(dur.Seconds())
	if IsInvalidInput(err) {
		predictionsTotal.WithLabelValues("invalid").Inc()
		p.log.Debug().Err(err).Msg("predict rejected")
		return Result{}, err
	}
	if err != nil {
		atomic.AddUint64(&p.failures, 1)
		predictionsTotal.WithLabelValues("failed").Inc()
		p.log.Error().Err(err).Int("n", params.N).Dur("dur", dur).Msg("predict failed")
		p.publish("predict_error", map[string]any{"error": err.Error()})
		return Result{}, err
	}
	atomic.AddUint64(&p.predictions, 1)
	predictionsTotal.WithLabelValues("succeeded").Inc()
	sequencesTotal.Add(float64(len(res.Output)))
	p.log.Debug().Int("n", params.N).Int("prompt_tokens", res.PromptTokens).Dur("dur", dur).Msg("predict done")
	p.publish("predict_done", map[string]any{"n": params.N, "prompt_tokens": res.PromptTokens, "dur_ms": int(dur / time.Millisecond)})
	return res, nil
}

func (p *Predictor) generate(ctx context.Context, sess InferSession, params Params) (Result, error) {
	promptTokens, err := sess.Tokenize(ctx, params.Prompt)
	if err != nil {
		return Result{}, fmt.Errorf("tokenize: %w", err)
	}
	res := Result{Output: make([]string, 0, params.N), PromptTokens: promptTokens}

	budget := params.MaxLength - promptTokens
	if budget < 1 {
		return Result{}, ErrInvalidInput("max_length", fmt.Sprintf(
			"input length is %d tokens but max_length is %d; raise max_length above the prompt length",
			promptTokens, params.MaxLength))
	}

	for i := 0; i < params.N; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		sp := SampleParams{
			MaxTokens:     budget,
			Temperature:   float32(params.Temperature),
			TopP:          float32(params.TopP),
			RepeatPenalty: float32(params.RepetitionPenalty),
			Seed:          params.SeedFor(i),
		}
		var sb strings.Builder
		fr, err := sess.Generate(ctx, params.Prompt, sp, func(tok string) error {
			sb.WriteString(tok)
			return nil
		})
		if err != nil {
			return Result{}, fmt.Errorf("decode sequence %d: %w", i, err)
		}
		text := fr.Content
		if text == "" {
			text = sb.String()
		}
		res.Output = append(res.Output, params.Prompt+text)
	}
	return res, nil
}
