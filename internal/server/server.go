package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/givecal/internal/board"
	"github.com/alfredjeanlab/givecal/internal/config"
	"github.com/alfredjeanlab/givecal/internal/events"
	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/paylink"
	"github.com/alfredjeanlab/givecal/internal/pledges"
	"github.com/alfredjeanlab/givecal/internal/presence"
)

// errLocalOnly is returned by write APIs when the calendar has no shared
// store to write to.
var errLocalOnly = errors.New("pledges are not shared on this calendar")

// Options configures a CalendarServer.
type Options struct {
	Fundraiser *config.Fundraiser
	Board      *board.Board

	// Remote is the shared pledge store. It must be the store the board
	// was built in synced mode with, and nil in local-only mode.
	Remote *pledges.Remote

	// Viewers tracks open pledge feeds. A fresh tracker is used when nil.
	Viewers *presence.Tracker

	ClientID      string
	FallbackDelay time.Duration
	Logger        *slog.Logger
}

// CalendarServer serves one giving calendar over HTTP, SSE and gRPC.
type CalendarServer struct {
	fundraiser    *config.Fundraiser
	board         *board.Board
	remote        *pledges.Remote
	composer      *paylink.Composer
	sseHub        *sseHub
	viewers       *presence.Tracker
	clientID      string
	fallbackDelay time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewCalendarServer returns a server for the given board.
func NewCalendarServer(opts Options) *CalendarServer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FallbackDelay <= 0 {
		opts.FallbackDelay = paylink.DefaultFallbackDelay
	}
	if opts.Viewers == nil {
		opts.Viewers = presence.New()
	}
	f := opts.Fundraiser
	if f == nil {
		f = config.DefaultFundraiser()
	}
	s := &CalendarServer{
		fundraiser:    f,
		board:         opts.Board,
		remote:        opts.Remote,
		composer:      paylink.New(f.VenmoUsername, f.NotePrefix),
		sseHub:        newSSEHub(),
		viewers:       opts.Viewers,
		clientID:      opts.ClientID,
		fallbackDelay: opts.FallbackDelay,
		logger:        opts.Logger,
		now:           time.Now,
	}
	if !s.Synced() {
		s.board.OnChange(func(c model.Cell) {
			if !c.Status.IsPledged() {
				return
			}
			rec := s.recordFor(c)
			s.broadcastEvent(events.TopicPledgePut, events.PledgePut{Pledge: &rec})
		})
	}
	return s
}

// Synced reports whether pledges are shared through a store.
func (s *CalendarServer) Synced() bool {
	return s.remote != nil
}

// Run keeps the board and the live feed current until ctx is done.
//
// In synced mode the store feed is applied to the board and fanned out to
// stream clients. In local-only mode board changes are already fanned out as
// they happen and Run only waits.
func (s *CalendarServer) Run(ctx context.Context) error {
	if !s.Synced() {
		<-ctx.Done()
		return nil
	}

	err := s.remote.Subscribe(ctx, func(id string, rec model.PledgeRecord) {
		if s.board.Stale(id, rec) {
			s.logger.Debug("dropping stale pledge", "id", id, "created_at", rec.CreatedAt)
			return
		}
		s.board.Apply(id, rec)
		s.broadcastEvent(events.TopicPledgePut, events.PledgePut{Pledge: &rec})
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("following pledge feed: %w", err)
	}
	return nil
}

// records returns the current pledges: the stored records in synced mode,
// otherwise records synthesized from the board's pledged cells.
func (s *CalendarServer) records(ctx context.Context) ([]*model.PledgeRecord, error) {
	if s.Synced() {
		return s.remote.List(ctx)
	}
	var out []*model.PledgeRecord
	for _, c := range s.board.Snapshot() {
		if !c.Status.IsPledged() {
			continue
		}
		rec := s.recordFor(c)
		out = append(out, &rec)
	}
	return out, nil
}

func (s *CalendarServer) recordFor(c model.Cell) model.PledgeRecord {
	rec := model.NewPledgeRecord(&c, c.Status.Amount, c.Status.Name, s.fundraiser.VenmoUsername, s.clientID)
	rec.CreatedAt = s.now().UTC()
	return rec
}

// putPledge validates and stores rec under id.
func (s *CalendarServer) putPledge(ctx context.Context, id string, rec model.PledgeRecord) (*model.PledgeRecord, error) {
	if !s.Synced() {
		return nil, errLocalOnly
	}
	if _, ok := s.board.Cell(id); !ok {
		return nil, inputError(fmt.Sprintf("unknown cell %q", id))
	}
	return s.remote.Record(ctx, id, rec)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

func isInputError(err error) bool {
	var ie inputError
	var ve *model.ValidationError
	return errors.As(err, &ie) || errors.As(err, &ve)
}

// broadcastEvent fans event out to SSE and Watch clients.
func (s *CalendarServer) broadcastEvent(topic string, event any) {
	if s.sseHub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event for broadcast", "topic", topic, "error", err)
		return
	}
	s.sseHub.broadcast(topic, payload)
}
