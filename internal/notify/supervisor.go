package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"directory-console/backend/internal/obs"
)

// Supervisor runs named periodic workers. Starting a name twice is a no-op,
// so process restarts and repeated wiring can never double a loop.
type Supervisor struct {
	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSupervisor returns a supervisor whose workers stop when ctx is
// cancelled.
func NewSupervisor(ctx context.Context) *Supervisor {
	ctx, cancel := context.WithCancel(ctx)
	return &Supervisor{running: map[string]bool{}, ctx: ctx, cancel: cancel}
}

// StartIfNotRunning launches the worker loop under the given name. Returns
// false when a loop with that name is already running. Cycle errors are
// logged and the loop continues.
func (s *Supervisor) StartIfNotRunning(name string, interval time.Duration, runOnce func(ctx context.Context) error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
			}
			obs.WorkerCyclesTotal.WithLabelValues(name).Inc()
			if err := runOnce(s.ctx); err != nil {
				log.Printf("notify: %s cycle: %v", name, err)
			}
		}
	}()
	return true
}

// Stop cancels all workers and waits for them to exit.
func (s *Supervisor) Stop() {
	s.cancel()
	s.wg.Wait()
}
