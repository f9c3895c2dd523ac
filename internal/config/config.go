package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. PREDICTD_ADDR.
const EnvPrefix = "predictd"

// Config holds runtime parameters for the service.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// Artifact selection and cache.
	ModelID   string `json:"model_id" yaml:"model_id" toml:"model_id" split_words:"true"`
	ModelFile string `json:"model_file" yaml:"model_file" toml:"model_file" split_words:"true"`
	Revision  string `json:"revision" yaml:"revision" toml:"revision"`
	HubURL    string `json:"hub_url" yaml:"hub_url" toml:"hub_url" split_words:"true"`
	HubToken  string `json:"hub_token" yaml:"hub_token" toml:"hub_token" envconfig:"HF_TOKEN"`
	CacheDir  string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir" split_words:"true"`

	// Inference backend: llama (in-process), server (remote llama.cpp) or spawn.
	Backend   string `json:"backend" yaml:"backend" toml:"backend"`
	Device    string `json:"device" yaml:"device" toml:"device"`
	GPULayers int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers" split_words:"true"`
	CtxSize   int    `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size" split_words:"true"`
	Threads   int    `json:"threads" yaml:"threads" toml:"threads"`

	ServerURL    string `json:"server_url" yaml:"server_url" toml:"server_url" split_words:"true"`
	ServerAPIKey string `json:"server_api_key" yaml:"server_api_key" toml:"server_api_key" split_words:"true"`
	LlamaBin     string `json:"llama_bin" yaml:"llama_bin" toml:"llama_bin" split_words:"true"`
	LlamaHost    string `json:"llama_host" yaml:"llama_host" toml:"llama_host" split_words:"true"`

	// Admission and request limits.
	MaxQueueDepth         int   `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth" split_words:"true"`
	MaxWaitSeconds        int   `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds" split_words:"true"`
	PredictTimeoutSeconds int64 `json:"predict_timeout_seconds" yaml:"predict_timeout_seconds" toml:"predict_timeout_seconds" split_words:"true"`
	MaxBodyBytes          int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" split_words:"true"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" split_words:"true"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" split_words:"true"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" split_words:"true"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" split_words:"true"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Addr:           ":5000",
		ModelID:        "TheBloke/GOAT-70B-Storytelling-GGUF",
		ModelFile:      "goat-70b-storytelling.Q5_K_M.gguf",
		Revision:       "main",
		HubURL:         "https://huggingface.co",
		CacheDir:       "weights",
		Backend:        "llama",
		Device:         "auto",
		CtxSize:        4096,
		LlamaHost:      "127.0.0.1",
		MaxQueueDepth:  32,
		MaxWaitSeconds: 600,
		MaxBodyBytes:   1 << 20,
		LogLevel:       "info",
		LogFormat:      "auto",
	}
}

// Resolve builds the effective configuration: defaults, then the optional
// file at path, then .env and PREDICTD_* environment variables. The result is
// validated.
func Resolve(path string) (Config, error) {
	cfg, err := Layer(path)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Layer is Resolve without validation, for callers that overlay further
// settings (command-line flags) and validate once at the end.
func Layer(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := LoadInto(path, &cfg); err != nil {
			return cfg, err
		}
	}
	// A missing .env is the common case.
	_ = godotenv.Load()
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays PREDICTD_* variables onto cfg. Unset variables leave the
// corresponding field unchanged. The hub token also falls back to HF_TOKEN.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}

// Validate rejects configurations that cannot produce a working server.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.Backend {
	case "llama", "spawn":
		if strings.TrimSpace(c.ModelID) == "" || strings.TrimSpace(c.ModelFile) == "" {
			errs = append(errs, errors.New("model_id and model_file are required"))
		}
	case "server":
		if strings.TrimSpace(c.ServerURL) == "" {
			errs = append(errs, errors.New("server_url is required for backend=server"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want llama, server or spawn)", c.Backend))
	}
	switch c.Device {
	case "auto", "cpu", "cuda", "metal":
	default:
		errs = append(errs, fmt.Errorf("unknown device %q (want auto, cpu, cuda or metal)", c.Device))
	}
	if c.GPULayers < 0 {
		errs = append(errs, errors.New("gpu_layers must be >= 0"))
	}
	if c.CtxSize < 0 || c.Threads < 0 {
		errs = append(errs, errors.New("ctx_size and threads must be >= 0"))
	}
	if c.MaxQueueDepth < 0 || c.MaxWaitSeconds < 0 || c.PredictTimeoutSeconds < 0 {
		errs = append(errs, errors.New("queue and timeout settings must be >= 0"))
	}
	return errors.Join(errs...)
}
