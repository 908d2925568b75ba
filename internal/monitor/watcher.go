package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/raulk/clock"
	"go.uber.org/zap"
)

// Watcher polls the status of every tracked endpoint on an interval
type Watcher struct {
	fetcher  StatusFetcher
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	endpoints []string

	results chan Result
	done    chan struct{}
}

// NewWatcher creates a new watcher for the given endpoints
func NewWatcher(fetcher StatusFetcher, clk clock.Clock, interval time.Duration, endpoints []string, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		fetcher:   fetcher,
		clock:     clk,
		interval:  interval,
		logger:    logger,
		endpoints: append([]string(nil), endpoints...),
		results:   make(chan Result, len(endpoints)*2+2),
		done:      make(chan struct{}),
	}
}

// Start polls all endpoints until ctx is cancelled
func (w *Watcher) Start(ctx context.Context) {
	defer func() {
		close(w.results)
		close(w.done)
	}()

	// Initial check
	w.checkAll(ctx)

	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkAll(ctx)
		}
	}
}

// checkAll polls every endpoint concurrently
func (w *Watcher) checkAll(ctx context.Context) {
	w.mu.RLock()
	names := append([]string(nil), w.endpoints...)
	w.mu.RUnlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			w.checkEndpoint(ctx, name)
		}(name)
	}
	wg.Wait()
}

// AddEndpoint starts tracking an endpoint and checks it on the next tick.
// The caller must keep reading Results until then.
func (w *Watcher) AddEndpoint(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, n := range w.endpoints {
		if n == name {
			return
		}
	}
	w.endpoints = append(w.endpoints, name)
}

// checkEndpoint fetches the status of one endpoint and publishes it
func (w *Watcher) checkEndpoint(ctx context.Context, name string) {
	select {
	case w.results <- Result{EndpointName: name, Status: StatusChecking, CheckedAt: w.clock.Now()}:
	case <-ctx.Done():
		return
	}

	start := w.clock.Now()
	status, reason, err := w.fetcher.EndpointStatus(ctx, name)
	result := Result{
		EndpointName:  name,
		Status:        Status(status),
		FailureReason: reason,
		Latency:       w.clock.Since(start),
		CheckedAt:     w.clock.Now(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Debug("Endpoint status check failed", zap.String("endpoint", name), zap.Error(err))
		result.Status = StatusUnknown
		result.Error = err
	}

	select {
	case w.results <- result:
	case <-ctx.Done():
	}
}

// Results returns the channel for receiving observations
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Done returns a channel that's closed when watching stops
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}
