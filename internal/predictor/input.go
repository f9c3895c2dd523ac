package predictor

import (
	"fmt"
	"math"

	"predictd/pkg/types"
)

// Declared input bounds and defaults.
const (
	MinN     = 1
	MaxN     = 5
	DefaultN = 1

	MinMaxLength     = 1
	DefaultMaxLength = 50

	MinTemperature     = 0.01
	MaxTemperature     = 5.0
	DefaultTemperature = 0.75

	MinTopP     = 0.01
	MaxTopP     = 1.0
	DefaultTopP = 1.0

	MinRepetitionPenalty     = 0.01
	MaxRepetitionPenalty     = 5.0
	DefaultRepetitionPenalty = 1.0

	MaxSeed = math.MaxInt32
)

// Params is a validated, defaulted prediction input.
type Params struct {
	Prompt            string
	N                 int
	MaxLength         int
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	// Seed is nil when the caller wants fresh randomness.
	Seed *int64
}

// SeedFor returns the seed of sequence i, or -1 for a random one. Sequences
// of one request get distinct but reproducible seeds.
func (p Params) SeedFor(i int) int {
	if p.Seed == nil {
		return -1
	}
	return int((*p.Seed + int64(i)) % (MaxSeed + 1))
}

// Normalize applies defaults to unset fields and rejects set fields that are
// out of bounds. No model call happens before this succeeds.
func Normalize(in types.PredictionInput) (Params, error) {
	if in.Prompt == "" {
		return Params{}, ErrInvalidInput("prompt", "prompt is required")
	}
	p := Params{
		Prompt:            in.Prompt,
		N:                 intOr(in.N, DefaultN),
		MaxLength:         intOr(in.MaxLength, DefaultMaxLength),
		Temperature:       floatOr(in.Temperature, DefaultTemperature),
		TopP:              floatOr(in.TopP, DefaultTopP),
		RepetitionPenalty: floatOr(in.RepetitionPenalty, DefaultRepetitionPenalty),
		Seed:              in.Seed,
	}
	if p.N < MinN || p.N > MaxN {
		return Params{}, ErrInvalidInput("n", fmt.Sprintf("must be between %d and %d, got %d", MinN, MaxN, p.N))
	}
	if p.MaxLength < MinMaxLength {
		return Params{}, ErrInvalidInput("max_length", fmt.Sprintf("must be >= %d, got %d", MinMaxLength, p.MaxLength))
	}
	if err := inRange("temperature", p.Temperature, MinTemperature, MaxTemperature); err != nil {
		return Params{}, err
	}
	if err := inRange("top_p", p.TopP, MinTopP, MaxTopP); err != nil {
		return Params{}, err
	}
	if err := inRange("repetition_penalty", p.RepetitionPenalty, MinRepetitionPenalty, MaxRepetitionPenalty); err != nil {
		return Params{}, err
	}
	if p.Seed != nil && (*p.Seed < 0 || *p.Seed > MaxSeed) {
		return Params{}, ErrInvalidInput("seed", fmt.Sprintf("must be between 0 and %d, got %d", MaxSeed, *p.Seed))
	}
	return p, nil
}

func inRange(field string, v, lo, hi float64) error {
	// written so NaN fails too
	if !(v >= lo && v <= hi) {
		return ErrInvalidInput(field, fmt.Sprintf("must be between %g and %g, got %g", lo, hi, v))
	}
	return nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Schema describes the declared inputs for GET /schema.
func Schema() types.SchemaResponse {
	f := func(v float64) *float64 { return &v }
	return types.SchemaResponse{Input: []types.InputField{
		{Name: "prompt", Type: "string", Description: "Text prompt to send to the model.", Required: true},
		{Name: "n", Type: "integer", Description: "Number of output sequences to generate",
			Default: DefaultN, Minimum: f(MinN), Maximum: f(MaxN)},
		{Name: "max_length", Type: "integer", Description: "Maximum number of tokens to generate. A word is generally 2-3 tokens",
			Default: DefaultMaxLength, Minimum: f(MinMaxLength)},
		{Name: "temperature", Type: "number", Description: "Adjusts randomness of outputs, greater than 1 is random and 0 is deterministic, 0.75 is a good starting value.",
			Default: DefaultTemperature, Minimum: f(MinTemperature), Maximum: f(MaxTemperature)},
		{Name: "top_p", Type: "number", Description: "When decoding text, samples from the top p percentage of most likely tokens; lower to ignore less likely tokens",
			Default: DefaultTopP, Minimum: f(MinTopP), Maximum: f(MaxTopP)},
		{Name: "repetition_penalty", Type: "number", Description: "Penalty for repeated words in generated text; 1 is no penalty, values greater than 1 discourage repetition, less than 1 encourage it.",
			Default: DefaultRepetitionPenalty, Minimum: f(MinRepetitionPenalty), Maximum: f(MaxRepetitionPenalty)},
		{Name: "seed", Type: "integer", Description: "Random seed. Leave blank to randomize the seed.",
			Minimum: f(0), Maximum: f(MaxSeed)},
	}}
}
