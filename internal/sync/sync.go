package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/givecal/internal/store"
)

// Destination receives the pledge export on every sync.
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Scheduler exports the pledges on an interval and hands the export to each
// destination. A destination is skipped while the pledges it last accepted
// are unchanged.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	accepted map[int][sha256.Size]byte // destination index -> pledge digest

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler returns a scheduler over s. Call Start to begin syncing.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		accepted:     make(map[int][sha256.Size]byte),
	}
}

// Start syncs once right away and then on every tick until Stop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the scheduler and waits for a sync in progress.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	s.logResult(s.SyncNow(ctx))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logResult(s.SyncNow(ctx))
		}
	}
}

func (s *Scheduler) logResult(err error) {
	if err != nil {
		s.logger.Error("pledge sync incomplete", "error", err)
	}
}

// SyncNow exports the pledges and writes them to every destination that
// has not accepted them yet. Failed destinations are retried on the next
// sync.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, &buf); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	data := buf.Bytes()
	digest := pledgeDigest(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	written := 0
	for i, dest := range s.destinations {
		if last, ok := s.accepted[i]; ok && last == digest {
			continue
		}
		if err := dest.Write(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", destinationName(dest), err))
			continue
		}
		s.accepted[i] = digest
		written++
	}
	if written > 0 {
		s.logger.Info("pledges synced", "destinations", written, "bytes", len(data))
	}
	return errors.Join(errs...)
}

// pledgeDigest hashes the export without its header line, whose timestamp
// changes on every export.
func pledgeDigest(data []byte) [sha256.Size]byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	}
	return sha256.Sum256(data)
}

func destinationName(d Destination) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", d)
}
