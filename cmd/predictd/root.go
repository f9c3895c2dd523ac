package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"predictd/internal/artifact"
	"predictd/internal/config"
	"predictd/internal/logging"
	"predictd/internal/predictor"
)

// rootOptions holds persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "predictd",
		Short:         "Serve text predictions from a GGUF model through llama.cpp",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off (overrides config)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: auto|json|console (overrides config)")
	addConfigFlags(pf)

	root.AddCommand(newServeCmd(opts), newPredictCmd(opts), newFetchCmd(opts), newDeviceCmd(opts))
	return root
}

// addConfigFlags registers flags that override config keys of the same name.
func addConfigFlags(fs *pflag.FlagSet) {
	d := config.Defaults()
	fs.String("model-id", d.ModelID, "Hub repository holding the weights")
	fs.String("model-file", d.ModelFile, "GGUF file inside the repository")
	fs.String("cache-dir", d.CacheDir, "Local weights cache directory")
	fs.String("hub-url", d.HubURL, "Hugging Face compatible hub base URL")
	fs.String("backend", d.Backend, "Inference backend: llama|server|spawn")
	fs.String("device", d.Device, "Compute device: auto|cpu|cuda|metal")
	fs.Int("gpu-layers", d.GPULayers, "Layers to offload (0 = all on an accelerator)")
	fs.String("server-url", d.ServerURL, "llama.cpp server URL for backend=server")
	fs.String("llama-bin", d.LlamaBin, "llama-server binary for backend=spawn")
}

// loadConfig layers file, .env and environment, then applies flags the user
// set explicitly, and validates the result once.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Layer(opts.configPath)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	fs := cmd.Flags()
	str := func(name string, dst *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	str("model-id", &cfg.ModelID)
	str("model-file", &cfg.ModelFile)
	str("cache-dir", &cfg.CacheDir)
	str("hub-url", &cfg.HubURL)
	str("backend", &cfg.Backend)
	str("device", &cfg.Device)
	str("server-url", &cfg.ServerURL)
	str("llama-bin", &cfg.LlamaBin)
	str("addr", &cfg.Addr)
	if f := fs.Lookup("gpu-layers"); f != nil && f.Changed {
		cfg.GPULayers, _ = fs.GetInt("gpu-layers")
	}
	if f := fs.Lookup("cors-origins"); f != nil && f.Changed {
		cfg.CORSOrigins = splitCSV(f.Value.String())
		cfg.CORSEnabled = len(cfg.CORSOrigins) > 0
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, zerolog.Nop(), err
	}
	return cfg, logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat), nil
}

// newPredictor wires the artifact cache and backend described by cfg.
func newPredictor(cfg config.Config, log zerolog.Logger) *predictor.Predictor {
	store := &artifact.Store{
		Dir:    cfg.CacheDir,
		HubURL: cfg.HubURL,
		Token:  cfg.HubToken,
		Logger: log.With().Str("component", "artifact").Logger(),
	}
	return predictor.New(predictor.Config{
		Artifact:      artifact.Ref{ModelID: cfg.ModelID, File: cfg.ModelFile, Revision: cfg.Revision},
		Store:         store,
		Backend:       cfg.Backend,
		Device:        cfg.Device,
		GPULayers:     cfg.GPULayers,
		CtxSize:       cfg.CtxSize,
		Threads:       cfg.Threads,
		ServerURL:     cfg.ServerURL,
		ServerAPIKey:  cfg.ServerAPIKey,
		LlamaBin:      cfg.LlamaBin,
		LlamaHost:     cfg.LlamaHost,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       seconds(cfg.MaxWaitSeconds),
		Logger:        log.With().Str("component", "predictor").Logger(),
	})
}

// splitCSV splits a comma-separated list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
