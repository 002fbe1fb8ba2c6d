package liveauction

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/events"
	"github.com/mcdev12/auctionhouse/go/internal/liveauction/ledger"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// Caller identifies who is invoking an operation. Identity is taken from
// the request as-is.
type Caller struct {
	ID   string
	Name string
	Role models.Role
}

// Snapshot is an immutable view of a session published after each commit.
// Callers must not modify it.
type Snapshot struct {
	Session   models.LiveAuctionSession `json:"session"`
	Ledger    *models.TempAuctionLedger `json:"ledger"`
	Results   []models.PlayerResult     `json:"results"`
	Version   uint64                    `json:"version"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// HasActiveLot reports whether a lot is open (READY, LIVE or PAUSED)
func (s *Snapshot) HasActiveLot() bool {
	return s.Ledger != nil && s.Ledger.State.Active()
}

// at returns a copy with the ledger countdown computed for now
func (s *Snapshot) at(now time.Time) *Snapshot {
	out := *s
	if s.Ledger != nil {
		l := *s.Ledger
		l.TimeRemaining = l.RemainingAt(now)
		out.Ledger = &l
	}
	return &out
}

// session is one running auction. mu serializes mutations; readers use
// the published snapshot.
type session struct {
	id uuid.UUID
	mu sync.Mutex

	data    models.LiveAuctionSession
	ledger  *ledger.Ledger
	results []models.PlayerResult
	version uint64
	closed  bool

	snap atomic.Pointer[Snapshot]
}

// work is the copy a mutation applies its changes to
type work struct {
	session models.LiveAuctionSession
	ledger  *ledger.Ledger
	results []models.PlayerResult
	ended   bool

	events []pendingEvent
	undo   []func(ctx context.Context)
	after  []func(ctx context.Context)
}

type pendingEvent struct {
	eventType events.EventType
	payload   interface{}
}

func (s *session) begin() *work {
	w := &work{
		session: cloneSession(s.data),
		results: append([]models.PlayerResult(nil), s.results...),
	}
	if s.ledger != nil {
		w.ledger = s.ledger.Clone()
	}
	return w
}

func (s *session) commit(w *work, now time.Time) *Snapshot {
	s.data = w.session
	s.ledger = w.ledger
	s.results = w.results
	s.version++
	if w.ended {
		s.closed = true
	}
	return s.publish(now)
}

func (s *session) publish(now time.Time) *Snapshot {
	snap := &Snapshot{
		Session:   cloneSession(s.data),
		Results:   append([]models.PlayerResult{}, s.results...),
		Version:   s.version,
		UpdatedAt: now,
	}
	if s.ledger != nil {
		l := s.ledger.Snapshot()
		snap.Ledger = &l
	}
	s.snap.Store(snap)
	return snap
}

func (s *session) record() SessionRecord {
	snap := s.snap.Load()
	return SessionRecord{
		ID:        s.id.String(),
		Session:   snap.Session,
		Ledger:    snap.Ledger,
		Results:   snap.Results,
		UpdatedAt: snap.UpdatedAt,
	}
}

func (w *work) record(now time.Time) SessionRecord {
	rec := SessionRecord{
		ID:        w.session.ID.String(),
		Session:   w.session,
		Results:   w.results,
		UpdatedAt: now,
	}
	if w.ledger != nil {
		l := w.ledger.Snapshot()
		rec.Ledger = &l
	}
	return rec
}

func (w *work) emit(eventType events.EventType, payload interface{}) {
	w.events = append(w.events, pendingEvent{eventType: eventType, payload: payload})
}

// onRollback registers a compensation for an external write already made
func (w *work) onRollback(fn func(ctx context.Context)) {
	w.undo = append(w.undo, fn)
}

// afterCommit registers best-effort follow-up work
func (w *work) afterCommit(fn func(ctx context.Context)) {
	w.after = append(w.after, fn)
}

func (w *work) rollback(ctx context.Context) {
	for i := len(w.undo) - 1; i >= 0; i-- {
		w.undo[i](ctx)
	}
	w.undo = nil
}

func cloneSession(s models.LiveAuctionSession) models.LiveAuctionSession {
	s.TeamIDs = copyIDs(s.TeamIDs)
	s.PlayerPool = copyIDs(s.PlayerPool)
	s.CompletedPlayerIDs = copyIDs(s.CompletedPlayerIDs)
	s.BidSlabs = append([]models.BidSlab(nil), s.BidSlabs...)
	return s
}

func copyIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
