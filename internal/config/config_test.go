package config

import (
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.ModelID != "TheBloke/GOAT-70B-Storytelling-GGUF" || cfg.ModelFile != "goat-70b-storytelling.Q5_K_M.gguf" {
		t.Fatalf("unexpected default artifact: %s/%s", cfg.ModelID, cfg.ModelFile)
	}
	if cfg.CacheDir != "weights" || cfg.Device != "auto" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"backend", func(c *Config) { c.Backend = "onnx" }, "unknown backend"},
		{"device", func(c *Config) { c.Device = "tpu" }, "unknown device"},
		{"server url", func(c *Config) { c.Backend = "server" }, "server_url"},
		{"model", func(c *Config) { c.ModelFile = "" }, "model_file"},
		{"gpu layers", func(c *Config) { c.GPULayers = -1 }, "gpu_layers"},
		{"queue", func(c *Config) { c.MaxWaitSeconds = -1 }, "queue"},
		{"addr", func(c *Config) { c.Addr = " " }, "addr"},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.mut(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestApplyEnvOverlays(t *testing.T) {
	t.Setenv("PREDICTD_ADDR", ":7777")
	t.Setenv("PREDICTD_GPU_LAYERS", "20")
	t.Setenv("PREDICTD_CORS_ORIGINS", "http://a,http://b")
	t.Setenv("HF_TOKEN", "hf_secret")
	cfg := Defaults()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Addr != ":7777" || cfg.GPULayers != 20 || cfg.HubToken != "hf_secret" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("slice not split: %v", cfg.CORSOrigins)
	}
	// untouched fields keep their defaults
	if cfg.ModelFile != Defaults().ModelFile {
		t.Fatalf("unset env cleared a field: %q", cfg.ModelFile)
	}
}

func TestResolveFileThenEnv(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :6000\ndevice: cpu\n")
	t.Setenv("PREDICTD_DEVICE", "cuda")
	cfg, err := Resolve(p)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Addr != ":6000" || cfg.Device != "cuda" {
		t.Fatalf("unexpected precedence: addr=%q device=%q", cfg.Addr, cfg.Device)
	}
}

func TestResolveInvalid(t *testing.T) {
	t.Setenv("PREDICTD_BACKEND", "nope")
	if _, err := Resolve(""); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLayerDefersValidation(t *testing.T) {
	t.Setenv("PREDICTD_BACKEND", "server")
	t.Setenv("PREDICTD_SERVER_URL", "")
	cfg, err := Layer("")
	if err != nil {
		t.Fatalf("Layer: %v", err)
	}
	if cfg.Backend != "server" || cfg.Validate() == nil {
		t.Fatalf("expected an incomplete server config, got %+v", cfg)
	}
	cfg.ServerURL = "http://127.0.0.1:8080"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate after overlay: %v", err)
	}
}
