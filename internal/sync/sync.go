// Package sync periodically exports the whole catalog as JSONL to backup
// destinations.
package sync

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/foundry/internal/idgen"
	"github.com/alfredjeanlab/foundry/internal/metrics"
	"github.com/alfredjeanlab/foundry/internal/model"
	"github.com/alfredjeanlab/foundry/internal/store"
)

// Destination is the interface for a sync target (S3, git, etc.).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Scheduler runs periodic syncs to one or more destinations.
type Scheduler struct {
	store        store.Store
	resources    []model.Resource
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports resources from the store to
// the given destinations at the specified interval.
func NewScheduler(s store.Store, resources []model.Resource, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		resources:    resources,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic sync. It runs an initial sync immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current sync (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.SyncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce exports once and writes the result to every destination. Failed
// destinations are logged and do not stop the others.
func (s *Scheduler) SyncOnce(ctx context.Context) {
	start := time.Now()
	logger := s.logger
	if run, err := idgen.GenerateWithPrefix("sync-"); err == nil {
		logger = logger.With("run", run)
	}

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, s.resources, &buf); err != nil {
		logger.Error("sync export failed", "err", err)
		metrics.SyncRunsTotal.WithLabelValues("failed").Inc()
		return
	}
	data := buf.Bytes()

	failed := 0
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			failed++
			logger.Error("sync destination write failed", "destination", describe(dest), "err", err)
		}
	}

	result := "ok"
	switch {
	case failed == len(s.destinations) && failed > 0:
		result = "failed"
	case failed > 0:
		result = "partial"
	}
	metrics.SyncRunsTotal.WithLabelValues(result).Inc()

	logger.Info("sync completed",
		"destinations", len(s.destinations),
		"failed", failed,
		"bytes", len(data),
		"duration", time.Since(start))
}

func describe(d Destination) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", d)
}
