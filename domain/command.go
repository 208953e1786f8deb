package domain

import "github.com/google/uuid"

// Command is the closed set of inbound room operations. Each wire message
// type maps to exactly one variant; the session dispatches on the concrete
// type, never on strings.
type Command interface {
	Room() RoomCode
	CommandName() string
}

type JoinCommand struct {
	RoomCode RoomCode
	UserID   string
}

func (c JoinCommand) Room() RoomCode      { return c.RoomCode }
func (c JoinCommand) CommandName() string { return "join" }

type LeaveCommand struct {
	RoomCode RoomCode
	UserID   string
}

func (c LeaveCommand) Room() RoomCode      { return c.RoomCode }
func (c LeaveCommand) CommandName() string { return "leave" }

type NewQuestionCommand struct {
	RoomCode RoomCode
	UserID   string
	Title    string
	Text     string
}

func (c NewQuestionCommand) Room() RoomCode      { return c.RoomCode }
func (c NewQuestionCommand) CommandName() string { return "new_question" }

type VoteCommand struct {
	RoomCode   RoomCode
	UserID     string
	QuestionID uuid.UUID
	Estimate   Hours
}

func (c VoteCommand) Room() RoomCode      { return c.RoomCode }
func (c VoteCommand) CommandName() string { return "vote" }

type CloseVoteCommand struct {
	RoomCode   RoomCode
	UserID     string
	QuestionID uuid.UUID
}

func (c CloseVoteCommand) Room() RoomCode      { return c.RoomCode }
func (c CloseVoteCommand) CommandName() string { return "close_vote" }

type DeleteQuestionCommand struct {
	RoomCode   RoomCode
	UserID     string
	QuestionID uuid.UUID
}

func (c DeleteQuestionCommand) Room() RoomCode      { return c.RoomCode }
func (c DeleteQuestionCommand) CommandName() string { return "delete_question" }
