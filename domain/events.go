package domain

import "github.com/google/uuid"

// Event is the closed set of broadcast notifications a room emits. Names
// double as the wire `type` discriminator and as metric labels.
type Event interface {
	EventName() string
}

type UserJoined struct {
	UserID string
	Count  int
}

func (UserJoined) EventName() string { return "user_joined" }

type UserLeft struct {
	UserID string
	Count  int
}

func (UserLeft) EventName() string { return "user_left" }

type QuestionAdded struct {
	Question QuestionView
}

func (QuestionAdded) EventName() string { return "new_question" }

// VoteRecorded carries the running count and the voter's id, never the
// estimate value: individual estimates stay hidden until the close.
type VoteRecorded struct {
	QuestionID uuid.UUID
	UserID     string
	VoteCount  int
}

func (VoteRecorded) EventName() string { return "vote_update" }

type VotingClosed struct {
	QuestionID uuid.UUID
	Estimate   Hours
	NoVotes    bool
}

func (VotingClosed) EventName() string { return "vote_closed" }

type QuestionDeleted struct {
	QuestionID uuid.UUID
}

func (QuestionDeleted) EventName() string { return "question_deleted" }
