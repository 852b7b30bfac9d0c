// Package presence tracks who is watching the calendar.
//
// The server records a viewer when a pledge feed (SSE stream or gRPC Watch)
// opens and releases it when the feed closes. A viewer with no open feed
// lingers until the reaper evicts it, so a reconnecting browser is not
// counted twice.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry is one viewer's live state.
type Entry struct {
	Viewer    string    `json:"viewer"`
	Transport string    `json:"transport"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Feeds     int       `json:"feeds"`    // currently open feeds
	Sessions  int64     `json:"sessions"` // feeds opened in total
}

// ReaperConfig configures the background eviction of departed viewers.
type ReaperConfig struct {
	// EvictAfter is how long a viewer with no open feed is kept.
	// Default: 2 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 30 seconds.
	SweepInterval time.Duration

	// OnEvict is called outside the lock for each evicted viewer.
	OnEvict func(viewer string)
}

// Tracker is an in-memory roster of viewers.
type Tracker struct {
	mu      sync.RWMutex
	viewers map[string]*viewerState
	now     func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type viewerState struct {
	transport string
	firstSeen time.Time
	lastSeen  time.Time
	feeds     int
	sessions  int64
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		viewers: make(map[string]*viewerState),
		now:     time.Now,
	}
}

// Join records that viewer opened a feed over transport. The returned func
// releases it and is safe to call more than once.
func (t *Tracker) Join(viewer, transport string) func() {
	if viewer == "" {
		return func() {}
	}
	now := t.now()

	t.mu.Lock()
	st, ok := t.viewers[viewer]
	if !ok {
		st = &viewerState{firstSeen: now}
		t.viewers[viewer] = st
	}
	st.transport = transport
	st.lastSeen = now
	st.feeds++
	st.sessions++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.leave(viewer) })
	}
}

func (t *Tracker) leave(viewer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.viewers[viewer]
	if !ok {
		return
	}
	st.lastSeen = t.now()
	if st.feeds > 0 {
		st.feeds--
	}
}

// Watching returns the number of viewers with at least one open feed.
func (t *Tracker) Watching() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, st := range t.viewers {
		if st.feeds > 0 {
			n++
		}
	}
	return n
}

// Roster returns every tracked viewer, most recently active first.
func (t *Tracker) Roster() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, 0, len(t.viewers))
	for viewer, st := range t.viewers {
		entries = append(entries, Entry{
			Viewer:    viewer,
			Transport: st.transport,
			FirstSeen: st.firstSeen,
			LastSeen:  st.lastSeen,
			Feeds:     st.feeds,
			Sessions:  st.sessions,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].Viewer < entries[j].Viewer
	})
	return entries
}

// StartReaper launches the eviction loop. Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 2 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})
	go t.reapLoop(cfg)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

// sweep evicts viewers without open feeds that have been gone longer than
// cfg.EvictAfter.
func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()
	var evicted []string

	t.mu.Lock()
	for viewer, st := range t.viewers {
		if st.feeds == 0 && now.Sub(st.lastSeen) > cfg.EvictAfter {
			delete(t.viewers, viewer)
			evicted = append(evicted, viewer)
		}
	}
	t.mu.Unlock()

	for _, viewer := range evicted {
		slog.Debug("presence: viewer evicted", "viewer", viewer)
		if cfg.OnEvict != nil {
			cfg.OnEvict(viewer)
		}
	}
}
