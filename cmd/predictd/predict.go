package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"predictd/internal/predictor"
	"predictd/pkg/types"
)

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var (
		in                         types.PredictionInput
		n, maxLength               int
		temperature, topP, penalty float64
		seed                       int64
	)
	cmd := &cobra.Command{
		Use:     "predict",
		Short:   "Load the model, run one prediction and print the output as JSON",
		Example: `  predictd predict --prompt "Once upon a time" --max-length 80 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			if fs.Changed("n") {
				in.N = &n
			}
			if fs.Changed("max-length") {
				in.MaxLength = &maxLength
			}
			if fs.Changed("temperature") {
				in.Temperature = &temperature
			}
			if fs.Changed("top-p") {
				in.TopP = &topP
			}
			if fs.Changed("repetition-penalty") {
				in.RepetitionPenalty = &penalty
			}
			if fs.Changed("seed") {
				in.Seed = &seed
			}
			// Reject bad input before paying for a model load.
			if _, err := predictor.Normalize(in); err != nil {
				return err
			}
			cfg, log, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			p := newPredictor(cfg, log)
			defer p.Close()
			if err := p.Setup(cmd.Context()); err != nil {
				return fmt.Errorf("setup: %w", err)
			}
			res, err := p.Predict(cmd.Context(), in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Output)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Prompt, "prompt", "", "Text prompt to send to the model")
	f.IntVar(&n, "n", predictor.DefaultN, "Number of output sequences to generate")
	f.IntVar(&maxLength, "max-length", predictor.DefaultMaxLength, "Maximum number of tokens, prompt included")
	f.Float64Var(&temperature, "temperature", predictor.DefaultTemperature, "Sampling temperature")
	f.Float64Var(&topP, "top-p", predictor.DefaultTopP, "Nucleus sampling threshold")
	f.Float64Var(&penalty, "repetition-penalty", predictor.DefaultRepetitionPenalty, "Penalty for repeated tokens")
	f.Int64Var(&seed, "seed", 0, "Random seed (random when unset)")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}
