package predictor

import (
	"sync/atomic"
	"time"

	"predictd/pkg/types"
)

// Status builds the /status view.
func (p *Predictor) Status() types.StatusResponse {
	active := p.activeModel()
	p.mu.RLock()
	resp := types.StatusResponse{
		State:         string(p.state),
		Error:         p.err,
		Model:         active,
		Backend:       p.cfg.Backend,
		SetupSeconds:  p.setupDur.Seconds(),
		QueueLen:      len(p.queueCh),
		Inflight:      len(p.genCh),
		MaxQueueDepth: cap(p.queueCh),
	}
	if p.device != nil {
		d := *p.device
		resp.Device = &d
	}
	if pp, ok := p.session.(interface{ PID() int }); ok {
		resp.PID = pp.PID()
	}
	p.mu.RUnlock()

	resp.PredictionsTotal = atomic.LoadUint64(&p.predictions)
	resp.FailuresTotal = atomic.LoadUint64(&p.failures)
	now := time.Now()
	resp.UptimeSeconds = int64(now.Sub(p.startTime).Seconds())
	resp.ServerTimeUnix = now.Unix()
	return resp
}
