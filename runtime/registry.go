package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"poker-lab/contract"
	"poker-lab/domain"
	"poker-lab/errors"
	"poker-lab/observability"
)

var _ contract.SessionRegistry = (*Registry)(nil)

// Registry maps room codes to live sessions. It is the only synchronized
// resource shared across rooms: everything else is owned by exactly one
// session loop.
type Registry struct {
	log        *slog.Logger
	store      contract.RoomStore
	supervisor contract.ISupervisor
	agg        domain.Aggregator
	buffer     int
	grace      time.Duration

	mu       sync.Mutex
	ctx      context.Context
	sessions map[domain.RoomCode]*RoomSession
}

func NewRegistry(log *slog.Logger, store contract.RoomStore, supervisor contract.ISupervisor,
	agg domain.Aggregator, buffer int, grace time.Duration) *Registry {
	return &Registry{
		log:        log,
		store:      store,
		supervisor: supervisor,
		agg:        agg,
		buffer:     buffer,
		grace:      grace,
		sessions:   make(map[domain.RoomCode]*RoomSession),
	}
}

// Start pins the lifecycle context that session workers run under. Sessions
// must outlive the request that created them, so they cannot inherit a
// request context.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctx = ctx
}

// GetOrCreate returns the live session for code, creating one when none
// runs. The room record must already exist in the store (the REST surface
// creates it); any persisted snapshot from a previous session is restored.
// Holding the mutex across the whole call guarantees one session per code
// under concurrent lookups.
func (r *Registry) GetOrCreate(ctx context.Context, code domain.RoomCode) (contract.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		s, ok := r.sessions[code]
		if !ok {
			break
		}
		if !s.Terminated() {
			return s, nil
		}
		// A terminated session still in the map is mid-teardown: its state
		// is not persisted yet. Wait for the handoff outside the lock, or a
		// reconnect racing the grace expiry would restore a stale snapshot.
		r.mu.Unlock()
		select {
		case <-s.Released():
		case <-ctx.Done():
			r.mu.Lock()
			return nil, ctx.Err()
		}
		r.mu.Lock()
	}

	rec, err := r.store.GetRoom(code)
	if err != nil {
		return nil, err
	}

	var room *domain.Room
	memento, found, err := r.store.LoadState(code)
	switch {
	case err != nil:
		return nil, fmt.Errorf("restoring room %s: %w", code, err)
	case found:
		room = domain.RestoreRoom(rec, memento)
	default:
		room = domain.NewRoom(rec)
	}

	sess := NewRoomSession(r.log, room, r.agg, r.buffer, r.grace, r.released)
	r.sessions[code] = sess

	runCtx := r.ctx
	if runCtx == nil {
		runCtx = context.Background()
	}
	r.supervisor.Start(runCtx, sess)
	observability.RoomOpened()
	r.log.Info("Room session started", "room", string(code), "restored", found)
	return sess, nil
}

// Lookup never creates a session.
func (r *Registry) Lookup(code domain.RoomCode) (contract.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[code]; ok && !s.Terminated() {
		return s, nil
	}
	return nil, fmt.Errorf("room %s: %w", code, errors.ErrNotFound)
}

// released is invoked by a session at the end of its teardown. Question and
// vote state is persisted so a later GetOrCreate resumes where the room left
// off; an empty room leaves nothing behind.
func (r *Registry) released(s *RoomSession, m domain.RoomMemento) {
	if len(m.Questions) == 0 {
		if err := r.store.DeleteState(s.Code()); err != nil {
			r.log.Error("Dropping room state failed", "room", string(s.Code()), "error", err)
		}
	} else if err := r.store.SaveState(m); err != nil {
		r.log.Error("Persisting room state failed", "room", string(s.Code()), "error", err)
	}

	r.mu.Lock()
	if r.sessions[s.Code()] == s {
		delete(r.sessions, s.Code())
	}
	r.mu.Unlock()
	observability.RoomClosed()
}
