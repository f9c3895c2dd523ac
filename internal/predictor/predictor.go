package predictor

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/artifact"
	"predictd/pkg/types"
)

// Predictor owns the single model handle of the process. Setup loads it once;
// Predict reads it for every request.
type Predictor struct {
	cfg     Config
	adapter InferenceAdapter

	mu        sync.RWMutex
	state     State
	err       string
	session   InferSession
	device    *types.Device
	modelPath string
	setupDur  time.Duration

	setupStarted bool

	// single in-flight generation behind a bounded queue
	genCh   chan struct{}
	queueCh chan struct{}
	maxWait time.Duration
	// closeWait bounds how long Close waits for the decode in flight
	closeWait time.Duration

	predictions uint64
	failures    uint64

	log       zerolog.Logger
	publisher EventPublisher
	startTime time.Time
}

// SetInferenceAdapter replaces the backend. Must be called before Setup.
func (p *Predictor) SetInferenceAdapter(a InferenceAdapter) {
	p.mu.Lock()
	p.adapter = a
	p.mu.Unlock()
}

// SetEventPublisher installs an EventPublisher; nil restores the no-op one.
func (p *Predictor) SetEventPublisher(pub EventPublisher) {
	if pub == nil {
		pub = noopPublisher{}
	}
	p.mu.Lock()
	p.publisher = pub
	p.mu.Unlock()
}

func (p *Predictor) publish(name string, fields map[string]any) {
	p.mu.RLock()
	pub := p.publisher
	p.mu.RUnlock()
	if fields == nil {
		fields = map[string]any{}
	}
	pub.Publish(Event{Name: name, Fields: fields})
}

// Ready reports whether Setup completed successfully.
func (p *Predictor) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state == StateReady && p.session != nil
}

// State returns the lifecycle state and the setup error, if any.
func (p *Predictor) State() (State, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state, p.err
}

// ListModels returns the artifacts in the cache plus the configured one,
// which is flagged active.
func (p *Predictor) ListModels() []types.Model {
	active := p.activeModel()
	var cached []types.Model
	if p.cfg.Store != nil {
		cached, _ = artifact.Scan(p.cfg.Store.Dir)
	}
	out := []types.Model{active}
	for _, m := range cached {
		if m.ID == active.ID && m.File == active.File {
			out[0].Path = m.Path
			out[0].SizeBytes = m.SizeBytes
			continue
		}
		out = append(out, m)
	}
	return out
}

func (p *Predictor) activeModel() types.Model {
	ref := p.cfg.Artifact
	m := types.Model{ID: ref.ModelID, File: ref.File, Quant: artifact.QuantOf(ref.File), Active: true}
	p.mu.RLock()
	m.Path = p.modelPath
	p.mu.RUnlock()
	return m
}

// Close releases the loaded model. New predictions are refused at once; a
// decode already in flight finishes before the model is freed. If it does
// not finish within the close wait the model is left allocated and an error
// is returned. The Predictor is unusable afterwards.
func (p *Predictor) Close() error {
	p.mu.Lock()
	sess := p.session
	p.session = nil
	p.state = StateError
	p.err = "closed"
	p.mu.Unlock()
	if sess == nil {
		return nil
	}

	timer := time.NewTimer(p.closeWait)
	defer timer.Stop()
	select {
	case p.genCh <- struct{}{}:
		defer func() { <-p.genCh }()
	case <-timer.C:
		p.log.Error().Dur("wait", p.closeWait).Msg("close: decode still running, model not released")
		return fmt.Errorf("close: decode still running after %s", p.closeWait)
	}
	p.publish("close", nil)
	return sess.Close()
}
