package predictor

import (
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/artifact"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 10 * time.Minute
	defaultCtxSize       = 4096
	defaultCloseWait     = 2 * time.Minute
)

// Config encapsulates all tunables for Predictor construction.
type Config struct {
	// Artifact to serve and the cache that materializes it.
	Artifact artifact.Ref
	Store    *artifact.Store

	Backend   string // llama (default), server or spawn
	Device    string // auto, cpu, cuda or metal
	GPULayers int    // 0 derives from the device
	CtxSize   int
	Threads   int

	// server backend
	ServerURL    string
	ServerAPIKey string
	// spawn backend
	LlamaBin  string
	LlamaHost string

	MaxQueueDepth int
	MaxWait       time.Duration

	Logger    zerolog.Logger
	Publisher EventPublisher
}

// New constructs a Predictor from Config. The model is not loaded until Setup.
func New(cfg Config) *Predictor {
	p := &Predictor{
		cfg:       cfg,
		state:     StateLoading,
		log:       cfg.Logger,
		publisher: cfg.Publisher,
		startTime: time.Now(),
	}
	if p.publisher == nil {
		p.publisher = noopPublisher{}
	}
	if cfg.Backend == "" {
		p.cfg.Backend = BackendLlama
	}
	if cfg.CtxSize <= 0 {
		p.cfg.CtxSize = defaultCtxSize
	}
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	p.maxWait = cfg.MaxWait
	if p.maxWait <= 0 {
		p.maxWait = defaultMaxWait
	}
	p.closeWait = defaultCloseWait
	p.genCh = make(chan struct{}, 1)
	p.queueCh = make(chan struct{}, depth)

	switch p.cfg.Backend {
	case BackendServer:
		p.adapter = NewLlamaServerAdapter(cfg.ServerURL, cfg.ServerAPIKey, 0, 10*time.Second, p.log)
	case BackendSpawn:
		p.adapter = NewLlamaSubprocessAdapter(SpawnConfig{Bin: cfg.LlamaBin, Host: cfg.LlamaHost}, p.log)
	default:
		p.adapter = NewLlamaAdapter()
	}
	return p
}
