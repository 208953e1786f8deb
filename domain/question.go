package domain

import (
	"time"

	"github.com/google/uuid"
)

type QuestionState int

const (
	QuestionOpen QuestionState = iota
	QuestionClosed
)

// Question is an estimation request posed by the room owner. It transitions
// Open -> Closed once; a closed question accepts no further votes and its
// result never changes.
type Question struct {
	ID        uuid.UUID
	Title     string
	Text      string
	CreatedAt time.Time
	State     QuestionState
	Estimate  Hours // valid once closed
	NoVotes   bool  // closed without a single vote

	votes map[string]Vote // keyed by voting user id
}

func (q *Question) Closed() bool { return q.State == QuestionClosed }

func (q *Question) VoteCount() int { return len(q.votes) }

func (q *Question) HasVoted(userID string) bool {
	_, ok := q.votes[userID]
	return ok
}

// View is the estimate-free projection of a question that may be shown to
// every participant, including before voting closes.
func (q *Question) View() QuestionView {
	return QuestionView{
		ID:        q.ID,
		Title:     q.Title,
		Text:      q.Text,
		CreatedAt: q.CreatedAt,
		VoteCount: len(q.votes),
		Estimated: q.Closed(),
		Estimate:  q.Estimate,
		NoVotes:   q.NoVotes,
	}
}

type QuestionView struct {
	ID        uuid.UUID
	Title     string
	Text      string
	CreatedAt time.Time
	VoteCount int
	Estimated bool
	Estimate  Hours
	NoVotes   bool
}

// Vote is one participant's duration estimate for an open question.
type Vote struct {
	UserID   string
	Estimate Hours
	CastAt   time.Time
}
