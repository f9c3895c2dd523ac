//go:build llama

package predictor

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

type llamaAdapter struct{}

// NewLlamaAdapter returns the in-process go-llama.cpp backend.
func NewLlamaAdapter() InferenceAdapter { return &llamaAdapter{} }

// llamaSession owns the loaded model
type llamaSession struct {
	model   *llama.LLama
	threads int
}

func (a *llamaAdapter) Start(modelPath string, params LoadParams) (InferSession, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{llama.SetContext(params.CtxSize)}
	if params.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(params.GPULayers))
	}
	m, err := llama.New(modelPath, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaSession{model: m, threads: params.Threads}, nil
}

func (s *llamaSession) Tokenize(ctx context.Context, text string) (int, error) {
	if s.model == nil {
		return 0, errors.New("llama model not initialized")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, _, err := s.model.TokenizeString(text, llama.SetThreads(max(1, s.threads)))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, params SampleParams, onToken func(string) error) (FinalResult, error) {
	if s.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}
	var cbErr error
	completion := 0
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		completion++
		if err := onToken(tok); err != nil {
			cbErr = err
			return false
		}
		return true
	})
	defer s.model.SetTokenCallback(nil)

	text, err := s.model.Predict(prompt, mapSampleParamsToPredictOptions(params, s.threads)...)
	if ctx.Err() != nil {
		return FinalResult{}, ctx.Err()
	}
	if cbErr != nil {
		return FinalResult{}, cbErr
	}
	if err != nil {
		return FinalResult{}, err
	}
	finish := "stop"
	if completion >= params.MaxTokens {
		finish = "length"
	}
	return FinalResult{
		Content:      text,
		Usage:        Usage{CompletionTokens: completion},
		FinishReason: finish,
	}, nil
}

func (s *llamaSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// mapSampleParamsToPredictOptions converts our sampling params into go-llama.cpp options
func mapSampleParamsToPredictOptions(params SampleParams, threads int) []llama.PredictOption {
	return []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
		llama.SetSeed(params.Seed),
	}
}
