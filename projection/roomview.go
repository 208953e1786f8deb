// Package projection maintains read models fed by room broadcasts. The
// canonical state lives server-side; a projection only folds the event
// stream, so two clients that saw the same events render the same view.
package projection

import (
	"sync"

	"poker-lab/contract"
	"poker-lab/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var _ contract.EventSink = (*RoomView)(nil)

// QuestionCard is one question as a participant sees it: counts and
// outcomes, never other people's estimates. Voted is local knowledge,
// derived from broadcasts carrying this client's own id.
type QuestionCard struct {
	Question domain.QuestionView
	Voted    bool
}

// RoomView folds room broadcasts into the participant's picture of the
// room. Unknown question ids are skipped, not errors: a broadcast can
// legitimately race a deletion the client has already applied.
type RoomView struct {
	selfID string

	mu        sync.Mutex
	count     int
	questions []QuestionCard // newest first, same order the room keeps
}

func NewRoomView(selfID string) *RoomView {
	return &RoomView{selfID: selfID}
}

func (v *RoomView) SelfID() string { return v.selfID }

// Seed replaces the view with a fetched snapshot, for a client that joins a
// room with history or reconnects after a gap.
func (v *RoomView) Seed(count int, questions []QuestionCard) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.count = count
	v.questions = append([]QuestionCard(nil), questions...)
}

// Consume applies one broadcast. It never fails: the projection prefers a
// momentarily stale card over tearing down the subscription.
func (v *RoomView) Consume(evt domain.Event) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e := evt.(type) {
	case domain.UserJoined:
		v.count = e.Count
	case domain.UserLeft:
		v.count = e.Count
	case domain.QuestionAdded:
		// Re-delivery after a reconnect must not duplicate the card.
		if _, found := v.find(e.Question.ID); found {
			return nil
		}
		v.questions = append([]QuestionCard{{Question: e.Question}}, v.questions...)
	case domain.VoteRecorded:
		if i, found := v.find(e.QuestionID); found {
			v.questions[i].Question.VoteCount = e.VoteCount
			if e.UserID == v.selfID {
				v.questions[i].Voted = true
			}
		}
	case domain.VotingClosed:
		if i, found := v.find(e.QuestionID); found {
			v.questions[i].Question.Estimated = true
			v.questions[i].Question.Estimate = e.Estimate
			v.questions[i].Question.NoVotes = e.NoVotes
		}
	case domain.QuestionDeleted:
		v.questions = lo.Reject(v.questions, func(c QuestionCard, _ int) bool {
			return c.Question.ID == e.QuestionID
		})
	}
	return nil
}

func (v *RoomView) find(id uuid.UUID) (int, bool) {
	for i, c := range v.questions {
		if c.Question.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Count reports the participant headcount as last broadcast.
func (v *RoomView) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.count
}

// Questions returns a copy of the cards, newest first.
func (v *RoomView) Questions() []QuestionCard {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]QuestionCard, len(v.questions))
	copy(out, v.questions)
	return out
}
