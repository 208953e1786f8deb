// Package runtime owns the live side of rooms: one serial session per room
// and the registry that creates and tears them down. It orchestrates without
// containing domain rules.
package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"poker-lab/contract"
	"poker-lab/domain"
	"poker-lab/errors"
	"poker-lab/observability"
)

// Ensure *RoomSession satisfies its contracts at compile time.
var (
	_ contract.Worker  = (*RoomSession)(nil)
	_ contract.Session = (*RoomSession)(nil)
)

type envelope struct {
	cmd   domain.Command
	reply chan<- error
}

type snapshotQuery struct {
	resp chan domain.RoomSnapshot
}

// RoomSession is the single-threaded actor owning one room. Commands are
// applied one at a time off the inbound queue; broadcasts fan out to the
// subscribed connections only after the mutation committed, in commit
// order, so every subscriber observes the same total order of events.
//
// Lifecycle: Active while participants are joined, Idle once the count
// drops to zero (the grace timer runs), Terminated when the grace window
// expires. A join within the window cancels the teardown, so a tab refresh
// does not lose question or vote state.
type RoomSession struct {
	log      *slog.Logger
	room     *domain.Room
	agg      domain.Aggregator
	grace    time.Duration
	inbound  chan envelope
	queries  chan snapshotQuery
	closed   chan struct{}
	released chan struct{}
	release  func(s *RoomSession, m domain.RoomMemento)

	mu          sync.Mutex
	subscribers map[string]contract.EventSink
}

func NewRoomSession(log *slog.Logger, room *domain.Room, agg domain.Aggregator,
	buffer int, grace time.Duration, release func(s *RoomSession, m domain.RoomMemento)) *RoomSession {
	return &RoomSession{
		log:         log,
		room:        room,
		agg:         agg,
		grace:       grace,
		inbound:     make(chan envelope, buffer),
		queries:     make(chan snapshotQuery),
		closed:      make(chan struct{}),
		released:    make(chan struct{}),
		release:     release,
		subscribers: make(map[string]contract.EventSink),
	}
}

func (s *RoomSession) Code() domain.RoomCode { return s.room.Code }

// Terminated reports whether the apply loop has shut down for good.
func (s *RoomSession) Terminated() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Released is closed once teardown finished: the memento is persisted and
// the registry slot is free. A successor session must not be created before
// then, or it would restore stale state.
func (s *RoomSession) Released() <-chan struct{} {
	return s.released
}

// Submit enqueues without blocking: a sender only ever waits on its own
// queue capacity, never on another participant's processing.
func (s *RoomSession) Submit(cmd domain.Command, reply chan<- error) error {
	select {
	case <-s.closed:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case s.inbound <- envelope{cmd: cmd, reply: reply}:
		return nil
	default:
		return errors.ErrBackpressure
	}
}

// View asks the apply loop for a snapshot, so the reader never observes a
// half-applied command.
func (s *RoomSession) View(ctx context.Context) (domain.RoomSnapshot, error) {
	q := snapshotQuery{resp: make(chan domain.RoomSnapshot, 1)}
	select {
	case s.queries <- q:
	case <-s.closed:
		return domain.RoomSnapshot{}, errors.ErrSessionClosed
	case <-ctx.Done():
		return domain.RoomSnapshot{}, ctx.Err()
	}
	select {
	case snap := <-q.resp:
		return snap, nil
	case <-s.closed:
		return domain.RoomSnapshot{}, errors.ErrSessionClosed
	case <-ctx.Done():
		return domain.RoomSnapshot{}, ctx.Err()
	}
}

func (s *RoomSession) Attach(userID string, sink contract.EventSink) {
	s.mu.Lock()
	prev, had := s.subscribers[userID]
	s.subscribers[userID] = sink
	s.mu.Unlock()
	if had && prev != sink {
		// One active connection per user per room: the newcomer wins.
		closeSink(prev)
	}
}

func (s *RoomSession) Detach(userID string, sink contract.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.subscribers[userID]; ok && current == sink {
		delete(s.subscribers, userID)
	}
}

func (s *RoomSession) Run(ctx context.Context) error {
	// A freshly created session has no participants yet; the grace timer
	// covers the gap until the first join.
	grace := time.NewTimer(s.grace)
	defer grace.Stop()
	idle := true

	for {
		select {
		case <-ctx.Done():
			s.terminate()
			return ctx.Err()

		case env := <-s.inbound:
			err := s.apply(env.cmd)
			if env.reply != nil {
				env.reply <- err
			}
			if s.room.ParticipantCount() == 0 {
				if !idle {
					idle = true
					resetTimer(grace, s.grace)
				}
			} else if idle {
				idle = false
				stopTimer(grace)
			}

		case q := <-s.queries:
			q.resp <- s.room.Snapshot()

		case <-grace.C:
			if s.room.ParticipantCount() > 0 {
				continue
			}
			s.log.Info("Grace period expired, terminating room session", "room", string(s.room.Code))
			observability.SessionTerminated()
			s.terminate()
			return nil
		}
	}
}

func (s *RoomSession) apply(cmd domain.Command) error {
	before := s.room.ParticipantCount()

	var err error
	switch c := cmd.(type) {
	case domain.JoinCommand:
		err = s.room.Join(c.UserID)
	case domain.LeaveCommand:
		err = s.room.Leave(c.UserID)
	case domain.NewQuestionCommand:
		_, err = s.room.AddQuestion(c.UserID, c.Title, c.Text, time.Now())
	case domain.VoteCommand:
		err = s.room.CastVote(c.UserID, c.QuestionID, c.Estimate, time.Now())
	case domain.CloseVoteCommand:
		err = s.room.CloseVoting(c.UserID, c.QuestionID, s.agg)
	case domain.DeleteQuestionCommand:
		err = s.room.DeleteQuestion(c.UserID, c.QuestionID)
	default:
		err = errors.ErrMalformed
	}

	observability.CommandApplied(cmd.CommandName(), err)
	if err != nil {
		s.log.Debug("Command rejected",
			"room", string(s.room.Code), "command", cmd.CommandName(), "error", err)
		return err
	}

	switch delta := s.room.ParticipantCount() - before; {
	case delta > 0:
		observability.ParticipantJoined()
	case delta < 0:
		observability.ParticipantLeft()
	}

	for _, evt := range s.room.FlushEvents() {
		s.broadcast(evt)
	}
	return nil
}

func (s *RoomSession) broadcast(evt domain.Event) {
	type subscriber struct {
		id   string
		sink contract.EventSink
	}
	s.mu.Lock()
	subs := make([]subscriber, 0, len(s.subscribers))
	for id, sink := range s.subscribers {
		subs = append(subs, subscriber{id: id, sink: sink})
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.sink.Consume(evt); err != nil {
			// A dead or saturated connection must not hold up the room.
			s.log.Warn("Dropping unresponsive subscriber",
				"room", string(s.room.Code), "user", sub.id, "error", err)
			s.Detach(sub.id, sub.sink)
			closeSink(sub.sink)
		}
	}
	observability.BroadcastDelivered(evt.EventName(), len(subs))
}

func (s *RoomSession) terminate() {
	close(s.closed)

	// Refuse whatever was already queued so no submitter waits forever.
drain:
	for {
		select {
		case env := <-s.inbound:
			if env.reply != nil {
				env.reply <- errors.ErrSessionClosed
			}
		default:
			break drain
		}
	}

	for i := 0; i < s.room.ParticipantCount(); i++ {
		observability.ParticipantLeft()
	}

	s.mu.Lock()
	sinks := s.subscribers
	s.subscribers = make(map[string]contract.EventSink)
	s.mu.Unlock()
	for _, sink := range sinks {
		closeSink(sink)
	}

	if s.release != nil {
		s.release(s, s.room.Memento())
	}
	close(s.released)
}

func closeSink(sink contract.EventSink) {
	if closer, ok := sink.(io.Closer); ok {
		_ = closer.Close()
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
