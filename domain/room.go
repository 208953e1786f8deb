// Package domain contains the authoritative state of an estimation room.
// This file defines the Room aggregate and its command handlers.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"time"

	"poker-lab/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type RoomCode string

type RoomStatus int

// Status values match the REST contract: 0 is open, anything else rejects joins.
const (
	RoomOpen RoomStatus = iota
	RoomDeactivated
)

// RoomRecord is the durable identity of a room, created by the REST surface
// before any session exists for it.
type RoomRecord struct {
	Code      RoomCode
	OwnerID   string
	Status    RoomStatus
	CreatedAt time.Time
}

// Room is the single source of truth for one estimation room: who is
// connected, which questions exist and who voted what. It is only ever
// mutated by its session's serial apply loop. Every successful command
// appends broadcast events to the outbox; FlushEvents drains them after
// the mutation committed.
type Room struct {
	Code      RoomCode
	OwnerID   string
	Status    RoomStatus
	CreatedAt time.Time

	participants map[string]struct{}
	questions    []*Question // newest first
	outbox       []Event
}

func NewRoom(rec RoomRecord) *Room {
	return &Room{
		Code:         rec.Code,
		OwnerID:      rec.OwnerID,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt,
		participants: make(map[string]struct{}),
	}
}

func (r *Room) ParticipantCount() int { return len(r.participants) }

func (r *Room) HasParticipant(userID string) bool {
	_, ok := r.participants[userID]
	return ok
}

// Join adds a participant and announces the new headcount. A deactivated
// room accepts no new joins, but a user already present may re-join (a
// fresh connection superseding the previous one).
func (r *Room) Join(userID string) error {
	if userID == "" {
		return errors.ErrMalformed
	}
	if r.Status != RoomOpen && !r.HasParticipant(userID) {
		return errors.ErrInvalidState
	}
	r.participants[userID] = struct{}{}
	r.emit(UserJoined{UserID: userID, Count: len(r.participants)})
	return nil
}

// Leave removes a participant. Leaving a room you are not in is a no-op,
// not an error: disconnect handling may race an explicit leave.
func (r *Room) Leave(userID string) error {
	if !r.HasParticipant(userID) {
		return nil
	}
	delete(r.participants, userID)
	r.emit(UserLeft{UserID: userID, Count: len(r.participants)})
	return nil
}

// AddQuestion appends an open question at the front of the display order.
func (r *Room) AddQuestion(senderID, title, text string, at time.Time) (*Question, error) {
	if senderID != r.OwnerID {
		return nil, errors.ErrForbidden
	}
	if title == "" || text == "" {
		return nil, errors.ErrMalformed
	}
	q := &Question{
		ID:        uuid.New(),
		Title:     title,
		Text:      text,
		CreatedAt: at,
		votes:     make(map[string]Vote),
	}
	r.questions = append([]*Question{q}, r.questions...)
	r.emit(QuestionAdded{Question: q.View()})
	return q, nil
}

// CastVote records one estimate for an open question. The owner never votes
// on their own room's questions, and one vote per user per question is final
// until the question closes. The broadcast carries the vote count, never the
// estimate values.
func (r *Room) CastVote(senderID string, questionID uuid.UUID, estimate Hours, at time.Time) error {
	if senderID == r.OwnerID {
		return errors.ErrForbidden
	}
	if estimate < 0 {
		return errors.ErrInvalidEstimate
	}
	q, ok := r.question(questionID)
	if !ok {
		return errors.ErrNotFound
	}
	if q.Closed() {
		return errors.ErrInvalidState
	}
	if q.HasVoted(senderID) {
		return errors.ErrConflict
	}
	q.votes[senderID] = Vote{UserID: senderID, Estimate: estimate, CastAt: at}
	r.emit(VoteRecorded{QuestionID: q.ID, UserID: senderID, VoteCount: q.VoteCount()})
	return nil
}

// CloseVoting transitions a question Open -> Closed exactly once, computing
// the result from exactly the votes recorded before this call. The result is
// immutable afterwards.
func (r *Room) CloseVoting(senderID string, questionID uuid.UUID, aggregate Aggregator) error {
	if senderID != r.OwnerID {
		return errors.ErrForbidden
	}
	q, ok := r.question(questionID)
	if !ok {
		return errors.ErrNotFound
	}
	if q.Closed() {
		return errors.ErrInvalidState
	}
	estimates := lo.Map(lo.Values(q.votes), func(v Vote, _ int) Hours { return v.Estimate })
	if len(estimates) == 0 {
		q.NoVotes = true
	} else {
		q.Estimate = aggregate(estimates)
	}
	q.State = QuestionClosed
	r.emit(VotingClosed{QuestionID: q.ID, Estimate: q.Estimate, NoVotes: q.NoVotes})
	return nil
}

// DeleteQuestion removes a question and all of its votes.
func (r *Room) DeleteQuestion(senderID string, questionID uuid.UUID) error {
	if senderID != r.OwnerID {
		return errors.ErrForbidden
	}
	if _, ok := r.question(questionID); !ok {
		return errors.ErrNotFound
	}
	r.questions = lo.Reject(r.questions, func(q *Question, _ int) bool { return q.ID == questionID })
	r.emit(QuestionDeleted{QuestionID: questionID})
	return nil
}

func (r *Room) question(id uuid.UUID) (*Question, bool) {
	return lo.Find(r.questions, func(q *Question) bool { return q.ID == id })
}

func (r *Room) emit(e Event) {
	r.outbox = append(r.outbox, e)
}

// FlushEvents drains the outbox. The session calls it after each committed
// command and fans the events out in this exact order.
func (r *Room) FlushEvents() []Event {
	events := r.outbox
	r.outbox = nil
	return events
}

// Snapshot is a read-only view of the room, answered by the session loop so
// readers never observe a half-applied command.
func (r *Room) Snapshot() RoomSnapshot {
	return RoomSnapshot{
		Code:             r.Code,
		OwnerID:          r.OwnerID,
		Status:           r.Status,
		ParticipantCount: len(r.participants),
		Questions:        lo.Map(r.questions, func(q *Question, _ int) QuestionView { return q.View() }),
		Voters: lo.SliceToMap(r.questions, func(q *Question) (uuid.UUID, []string) {
			return q.ID, lo.Keys(q.votes)
		}),
	}
}

type RoomSnapshot struct {
	Code             RoomCode
	OwnerID          string
	Status           RoomStatus
	ParticipantCount int
	Questions        []QuestionView // newest first
	// Voters maps question id to the ids of users who voted. Estimate
	// values are deliberately absent: they only surface through VotingClosed.
	Voters map[uuid.UUID][]string
}

// Memento captures everything needed to rebuild the room after its session
// was torn down, including open-question votes. Connected participants are
// not part of it: connections do not survive a session.
func (r *Room) Memento() RoomMemento {
	return RoomMemento{
		Code:      r.Code,
		OwnerID:   r.OwnerID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		Questions: lo.Map(r.questions, func(q *Question, _ int) QuestionMemento {
			return QuestionMemento{
				ID:        q.ID,
				Title:     q.Title,
				Text:      q.Text,
				CreatedAt: q.CreatedAt,
				Closed:    q.Closed(),
				Estimate:  q.Estimate,
				NoVotes:   q.NoVotes,
				Votes:     lo.Values(q.votes),
			}
		}),
	}
}

// RestoreRoom rebuilds a room from a memento. The record carries the fresh
// owner and activation status: those live in the room store and may have
// changed while no session was running.
func RestoreRoom(rec RoomRecord, m RoomMemento) *Room {
	room := NewRoom(rec)
	room.questions = lo.Map(m.Questions, func(qm QuestionMemento, _ int) *Question {
		q := &Question{
			ID:        qm.ID,
			Title:     qm.Title,
			Text:      qm.Text,
			CreatedAt: qm.CreatedAt,
			Estimate:  qm.Estimate,
			NoVotes:   qm.NoVotes,
			votes:     make(map[string]Vote, len(qm.Votes)),
		}
		if qm.Closed {
			q.State = QuestionClosed
		}
		for _, v := range qm.Votes {
			q.votes[v.UserID] = v
		}
		return q
	})
	return room
}

type RoomMemento struct {
	Code      RoomCode
	OwnerID   string
	Status    RoomStatus
	CreatedAt time.Time
	Questions []QuestionMemento
}

type QuestionMemento struct {
	ID        uuid.UUID
	Title     string
	Text      string
	CreatedAt time.Time
	Closed    bool
	Estimate  Hours
	NoVotes   bool
	Votes     []Vote
}
