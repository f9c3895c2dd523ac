package predictor

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (p *Predictor) beginGeneration(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	start := time.Now()

	timer := time.NewTimer(p.maxWait)
	defer timer.Stop()
	select {
	case p.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-p.queueCh
		}
	}()
	// the wait budget covers both stages
	remaining := p.maxWait - time.Since(start)
	if remaining <= 0 {
		return func() {}, tooBusyError{}
	}
	timer2 := time.NewTimer(remaining)
	defer timer2.Stop()
	select {
	case p.genCh <- struct{}{}:
		acquired = true
		queueWait.Observe(time.Since(start).Seconds())
		return func() { <-p.genCh; <-p.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, tooBusyError{}
	}
}
