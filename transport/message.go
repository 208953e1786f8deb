// Package transport carries room traffic over websockets: a JSON wire codec
// shared by server and client, the per-connection adapter, and the HTTP
// handler that upgrades and binds a connection to its room session.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"poker-lab/domain"
	"poker-lab/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// InboundMessage is one client frame. Type selects the operation; the other
// fields are read or ignored depending on it.
type InboundMessage struct {
	Type          string `json:"type" validate:"required,oneof=join leave new_question vote close_vote delete_question"`
	UserID        string `json:"user_id,omitempty"`
	QuestionID    string `json:"question_id,omitempty"`
	QuestionTitle string `json:"question_title,omitempty"`
	QuestionText  string `json:"question_text,omitempty"`
	Weeks         int    `json:"weeks,omitempty"`
	Days          int    `json:"days,omitempty"`
	Hours         int    `json:"hours,omitempty"`
}

// DecodeInbound parses and validates one raw frame. Anything that does not
// name a known operation is malformed, never a disconnect.
func DecodeInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("%w: %s", errors.ErrMalformed, err)
	}
	if err := validate.Struct(msg); err != nil {
		return InboundMessage{}, fmt.Errorf("%w: %s", errors.ErrMalformed, err)
	}
	return msg, nil
}

// Command maps the frame onto a room command. senderID is the identity the
// connection established at join time; the frame cannot speak for anyone
// else.
func (m InboundMessage) Command(room domain.RoomCode, senderID string) (domain.Command, error) {
	switch m.Type {
	case "join":
		return domain.JoinCommand{RoomCode: room, UserID: senderID}, nil
	case "leave":
		return domain.LeaveCommand{RoomCode: room, UserID: senderID}, nil
	case "new_question":
		if m.QuestionTitle == "" {
			return nil, fmt.Errorf("%w: new_question requires question_title", errors.ErrMalformed)
		}
		return domain.NewQuestionCommand{
			RoomCode: room, UserID: senderID,
			Title: m.QuestionTitle, Text: m.QuestionText,
		}, nil
	case "vote":
		id, err := m.questionID()
		if err != nil {
			return nil, err
		}
		if m.Weeks < 0 || m.Days < 0 || m.Hours < 0 {
			return nil, fmt.Errorf("%w: negative duration", errors.ErrInvalidEstimate)
		}
		return domain.VoteCommand{
			RoomCode: room, UserID: senderID,
			QuestionID: id, Estimate: domain.HoursFrom(m.Weeks, m.Days, m.Hours),
		}, nil
	case "close_vote":
		id, err := m.questionID()
		if err != nil {
			return nil, err
		}
		return domain.CloseVoteCommand{RoomCode: room, UserID: senderID, QuestionID: id}, nil
	case "delete_question":
		id, err := m.questionID()
		if err != nil {
			return nil, err
		}
		return domain.DeleteQuestionCommand{RoomCode: room, UserID: senderID, QuestionID: id}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errors.ErrMalformed, m.Type)
	}
}

func (m InboundMessage) questionID() (uuid.UUID, error) {
	id, err := uuid.Parse(m.QuestionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad question_id: %s", errors.ErrMalformed, err)
	}
	return id, nil
}

// QuestionPayload is the question shape shared by broadcasts and the REST
// surface. Voted is only populated when the reader's identity is known.
type QuestionPayload struct {
	QuestionID    string    `json:"question_id"`
	QuestionTitle string    `json:"question_title"`
	QuestionText  string    `json:"question_text"`
	VoteCount     int       `json:"vote_count"`
	IsEstimated   bool      `json:"is_estimated"`
	Estimate      int       `json:"estimate"`
	NoVotes       bool      `json:"no_votes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Voted         bool      `json:"voted,omitempty"`
}

func PayloadFromView(v domain.QuestionView) QuestionPayload {
	return QuestionPayload{
		QuestionID:    v.ID.String(),
		QuestionTitle: v.Title,
		QuestionText:  v.Text,
		VoteCount:     v.VoteCount,
		IsEstimated:   v.Estimated,
		Estimate:      int(v.Estimate),
		NoVotes:       v.NoVotes,
		CreatedAt:     v.CreatedAt,
	}
}

// OutboundMessage is one server frame: a broadcast event or an error ack
// addressed to the sender of a rejected command.
type OutboundMessage struct {
	Type       string           `json:"type"`
	UserID     string           `json:"user_id,omitempty"`
	Count      *int             `json:"count,omitempty"`
	QuestionID string           `json:"question_id,omitempty"`
	VoteCount  *int             `json:"vote_count,omitempty"`
	Estimate   *int             `json:"estimate,omitempty"`
	NoVotes    bool             `json:"no_votes,omitempty"`
	Question   *QuestionPayload `json:"question,omitempty"`
	Error      string           `json:"message,omitempty"`
}

// EncodeEvent renders a broadcast for the wire.
func EncodeEvent(evt domain.Event) OutboundMessage {
	switch e := evt.(type) {
	case domain.UserJoined:
		count := e.Count
		return OutboundMessage{Type: "user_joined", UserID: e.UserID, Count: &count}
	case domain.UserLeft:
		count := e.Count
		return OutboundMessage{Type: "user_left", UserID: e.UserID, Count: &count}
	case domain.QuestionAdded:
		payload := PayloadFromView(e.Question)
		return OutboundMessage{Type: "new_question", Question: &payload}
	case domain.VoteRecorded:
		votes := e.VoteCount
		return OutboundMessage{
			Type: "vote_update", QuestionID: e.QuestionID.String(),
			UserID: e.UserID, VoteCount: &votes,
		}
	case domain.VotingClosed:
		estimate := int(e.Estimate)
		return OutboundMessage{
			Type: "vote_closed", QuestionID: e.QuestionID.String(),
			Estimate: &estimate, NoVotes: e.NoVotes,
		}
	case domain.QuestionDeleted:
		return OutboundMessage{Type: "question_deleted", QuestionID: e.QuestionID.String()}
	default:
		return OutboundMessage{Type: evt.EventName()}
	}
}

// ErrorAck addresses a rejection to the offending sender only; the rest of
// the room never sees it.
func ErrorAck(err error) OutboundMessage {
	return OutboundMessage{Type: "error", Error: err.Error()}
}

// Event is the decode half used by clients: it folds a received frame back
// into the domain event it was encoded from.
func (m OutboundMessage) Event() (domain.Event, error) {
	switch m.Type {
	case "user_joined":
		return domain.UserJoined{UserID: m.UserID, Count: intOf(m.Count)}, nil
	case "user_left":
		return domain.UserLeft{UserID: m.UserID, Count: intOf(m.Count)}, nil
	case "new_question":
		if m.Question == nil {
			return nil, fmt.Errorf("%w: new_question without payload", errors.ErrMalformed)
		}
		view, err := m.Question.View()
		if err != nil {
			return nil, err
		}
		return domain.QuestionAdded{Question: view}, nil
	case "vote_update":
		id, err := uuid.Parse(m.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad question_id: %s", errors.ErrMalformed, err)
		}
		return domain.VoteRecorded{QuestionID: id, UserID: m.UserID, VoteCount: intOf(m.VoteCount)}, nil
	case "vote_closed":
		id, err := uuid.Parse(m.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad question_id: %s", errors.ErrMalformed, err)
		}
		return domain.VotingClosed{QuestionID: id, Estimate: domain.Hours(intOf(m.Estimate)), NoVotes: m.NoVotes}, nil
	case "question_deleted":
		id, err := uuid.Parse(m.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad question_id: %s", errors.ErrMalformed, err)
		}
		return domain.QuestionDeleted{QuestionID: id}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errors.ErrMalformed, m.Type)
	}
}

func (p QuestionPayload) View() (domain.QuestionView, error) {
	id, err := uuid.Parse(p.QuestionID)
	if err != nil {
		return domain.QuestionView{}, fmt.Errorf("%w: bad question_id: %s", errors.ErrMalformed, err)
	}
	return domain.QuestionView{
		ID:        id,
		Title:     p.QuestionTitle,
		Text:      p.QuestionText,
		CreatedAt: p.CreatedAt,
		VoteCount: p.VoteCount,
		Estimated: p.IsEstimated,
		Estimate:  domain.Hours(p.Estimate),
		NoVotes:   p.NoVotes,
	}, nil
}

func intOf(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
