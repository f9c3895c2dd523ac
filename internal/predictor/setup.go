package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"predictd/internal/device"
	"predictd/pkg/types"
)

// Setup resolves the compute device, materializes the weights and loads the
// model. It runs once; failures are final and leave the predictor in
// StateError so it never becomes ready.
func (p *Predictor) Setup(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateReady:
		p.mu.Unlock()
		return nil
	case StateError:
		msg := p.err
		p.mu.Unlock()
		return fmt.Errorf("setup already failed: %s", msg)
	}
	if p.setupStarted {
		p.mu.Unlock()
		return errors.New("setup already in progress")
	}
	p.setupStarted = true
	adapter := p.adapter
	p.mu.Unlock()

	start := time.Now()
	ref := p.cfg.Artifact
	p.log.Info().Str("backend", p.cfg.Backend).Str("artifact", ref.String()).Msg("setup start")
	p.publish("setup_start", map[string]any{"backend": p.cfg.Backend, "artifact": ref.String()})

	sess, dev, path, err := p.load(ctx, adapter)
	if err != nil {
		p.mu.Lock()
		p.state = StateError
		p.err = err.Error()
		p.mu.Unlock()
		setupFailures.Inc()
		p.log.Error().Err(err).Dur("dur", time.Since(start)).Msg("setup failed")
		p.publish("setup_error", map[string]any{"error": err.Error()})
		return err
	}

	dur := time.Since(start)
	p.mu.Lock()
	p.session = sess
	p.device = &dev
	p.modelPath = path
	p.setupDur = dur
	p.state = StateReady
	p.err = ""
	p.mu.Unlock()
	setupDuration.Set(dur.Seconds())
	p.log.Info().Str("device", dev.Kind).Int("gpu_layers", dev.GPULayers).
		Str("path", path).Dur("dur", dur).Msg("setup ready")
	p.publish("setup_ready", map[string]any{"device": dev.Kind, "dur_ms": int(dur / time.Millisecond)})
	return nil
}

func (p *Predictor) load(ctx context.Context, adapter InferenceAdapter) (InferSession, types.Device, string, error) {
	if adapter == nil {
		return nil, types.Device{}, "", ErrDependencyUnavailable("inference adapter not initialized")
	}
	dev, err := p.resolveDevice()
	if err != nil {
		return nil, types.Device{}, "", fmt.Errorf("resolve device: %w", err)
	}
	p.publish("device_resolved", map[string]any{"kind": dev.Kind, "gpu_layers": dev.GPULayers, "reason": dev.Reason})

	path, err := p.resolveArtifact(ctx)
	if err != nil {
		return nil, dev, "", fmt.Errorf("fetch weights: %w", err)
	}
	p.publish("artifact_ready", map[string]any{"path": path})
	if err := ctx.Err(); err != nil {
		return nil, dev, path, err
	}

	sess, err := adapter.Start(path, LoadParams{
		CtxSize:   p.cfg.CtxSize,
		Threads:   p.cfg.Threads,
		GPULayers: dev.GPULayers,
	})
	if err != nil {
		return nil, dev, path, fmt.Errorf("load model: %w", err)
	}
	return sess, dev, path, nil
}

func (p *Predictor) resolveDevice() (types.Device, error) {
	if p.cfg.Backend == BackendServer {
		return types.Device{Kind: deviceRemote, Reason: "placement owned by " + p.cfg.ServerURL}, nil
	}
	return device.Resolve(p.cfg.Device, p.cfg.GPULayers)
}

// resolveArtifact returns the local weights path. The server backend has
// the model loaded remotely and only needs its name.
func (p *Predictor) resolveArtifact(ctx context.Context) (string, error) {
	ref := p.cfg.Artifact
	if p.cfg.Backend == BackendServer {
		return ref.File, nil
	}
	if p.cfg.Store == nil {
		return "", errors.New("no artifact store configured")
	}
	return p.cfg.Store.Resolve(ctx, ref)
}
