package domain

import (
	"testing"
	"time"

	"poker-lab/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRoom() *Room {
	return NewRoom(RoomRecord{
		Code:      "ABC123",
		OwnerID:   "owner",
		Status:    RoomOpen,
		CreatedAt: time.Now(),
	})
}

func TestRoom_Join_AnnouncesHeadcount(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()

	req.NoError(room.Join("owner"))
	req.NoError(room.Join("bob"))

	events := room.FlushEvents()
	req.Len(events, 2)

	first, ok := events[0].(UserJoined)
	req.True(ok)
	req.Equal("owner", first.UserID)
	req.Equal(1, first.Count)

	second, ok := events[1].(UserJoined)
	req.True(ok)
	req.Equal(2, second.Count)

	// The outbox is drained after a flush
	req.Empty(room.FlushEvents())
}

func TestRoom_Join_RejoinDoesNotInflateCount(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()

	req.NoError(room.Join("bob"))
	req.NoError(room.Join("bob")) // superseding connection
	room.FlushEvents()

	req.Equal(1, room.ParticipantCount())
}

func TestRoom_Join_DeactivatedRoomRejectsNewJoins(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()
	req.NoError(room.Join("bob"))
	room.Status = RoomDeactivated

	// New users are turned away
	req.ErrorIs(room.Join("carol"), errors.ErrInvalidState)
	// An existing participant may reconnect
	req.NoError(room.Join("bob"))
}

func TestRoom_Leave_AbsentUserIsNoOp(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()

	req.NoError(room.Leave("ghost"))
	req.Empty(room.FlushEvents())

	req.NoError(room.Join("bob"))
	room.FlushEvents()
	req.NoError(room.Leave("bob"))

	events := room.FlushEvents()
	req.Len(events, 1)
	left, ok := events[0].(UserLeft)
	req.True(ok)
	req.Equal(0, left.Count)
}

func TestRoom_AddQuestion_OwnerOnlyAndNewestFirst(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()

	_, err := room.AddQuestion("bob", "Login page", "Estimate the login page", time.Now())
	req.ErrorIs(err, errors.ErrForbidden)
	req.Empty(room.FlushEvents())

	q1, err := room.AddQuestion("owner", "Login page", "Estimate the login page", time.Now())
	req.NoError(err)
	q2, err := room.AddQuestion("owner", "Search", "Estimate the search feature", time.Now())
	req.NoError(err)

	snap := room.Snapshot()
	req.Len(snap.Questions, 2)
	req.Equal(q2.ID, snap.Questions[0].ID)
	req.Equal(q1.ID, snap.Questions[1].ID)

	events := room.FlushEvents()
	req.Len(events, 2)
	added, ok := events[0].(QuestionAdded)
	req.True(ok)
	req.Equal(q1.ID, added.Question.ID)
	req.False(added.Question.Estimated)
}

func TestRoom_CastVote_RecordsOnePerUser(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()
	q, err := room.AddQuestion("owner", "Login page", "Estimate it", time.Now())
	req.NoError(err)
	room.FlushEvents()

	req.NoError(room.CastVote("bob", q.ID, 26, time.Now()))
	req.NoError(room.CastVote("carol", q.ID, 10, time.Now()))

	// A second vote from the same user never changes the recorded one
	req.ErrorIs(room.CastVote("bob", q.ID, 99, time.Now()), errors.ErrConflict)
	req.Equal(2, q.VoteCount())
	req.Equal(Hours(26), q.votes["bob"].Estimate)

	events := room.FlushEvents()
	req.Len(events, 2)
	update, ok := events[1].(VoteRecorded)
	req.True(ok)
	req.Equal("carol", update.UserID)
	req.Equal(2, update.VoteCount)
}

func TestRoom_CastVote_Rejections(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()
	q, err := room.AddQuestion("owner", "Login page", "Estimate it", time.Now())
	req.NoError(err)
	room.FlushEvents()

	req.ErrorIs(room.CastVote("owner", q.ID, 5, time.Now()), errors.ErrForbidden)
	req.ErrorIs(room.CastVote("bob", uuid.New(), 5, time.Now()), errors.ErrNotFound)
	req.ErrorIs(room.CastVote("bob", q.ID, -1, time.Now()), errors.ErrInvalidEstimate)

	req.NoError(room.CloseVoting("owner", q.ID, Mean))
	req.ErrorIs(room.CastVote("bob", q.ID, 5, time.Now()), errors.ErrInvalidState)

	// Rejections never reach the outbox
	events := room.FlushEvents()
	req.Len(events, 1)
	_, ok := events[0].(VotingClosed)
	req.True(ok)
}

func TestRoom_CloseVoting_EffectiveExactlyOnce(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()
	q, err := room.AddQuestion("owner", "Login page", "Estimate it", time.Now())
	req.NoError(err)
	req.NoError(room.CastVote("bob", q.ID, 20, time.Now()))
	req.NoError(room.CastVote("carol", q.ID, 30, time.Now()))
	room.FlushEvents()

	req.ErrorIs(room.CloseVoting("bob", q.ID, Mean), errors.ErrForbidden)
	req.NoError(room.CloseVoting("owner", q.ID, Mean))
	req.ErrorIs(room.CloseVoting("owner", q.ID, Mean), errors.ErrInvalidState)

	req.True(q.Closed())
	req.Equal(Hours(25), q.Estimate)

	events := room.FlushEvents()
	req.Len(events, 1)
	closed, ok := events[0].(VotingClosed)
	req.True(ok)
	req.Equal(Hours(25), closed.Estimate)
	req.False(closed.NoVotes)
}

func TestRoom_CloseVoting_ZeroVotesFlagsNoData(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()
	q, err := room.AddQuestion("owner", "Login page", "Estimate it", time.Now())
	req.NoError(err)
	room.FlushEvents()

	req.NoError(room.CloseVoting("owner", q.ID, Mean))

	req.True(q.Closed())
	req.True(q.NoVotes)
	req.Equal(Hours(0), q.Estimate)
}

func TestRoom_DeleteQuestion_RemovesQuestionAndVotes(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()
	q, err := room.AddQuestion("owner", "Login page", "Estimate it", time.Now())
	req.NoError(err)
	req.NoError(room.CastVote("bob", q.ID, 8, time.Now()))
	room.FlushEvents()

	req.ErrorIs(room.DeleteQuestion("bob", q.ID), errors.ErrForbidden)
	req.NoError(room.DeleteQuestion("owner", q.ID))
	req.ErrorIs(room.DeleteQuestion("owner", q.ID), errors.ErrNotFound)

	req.Empty(room.Snapshot().Questions)

	events := room.FlushEvents()
	req.Len(events, 1)
	deleted, ok := events[0].(QuestionDeleted)
	req.True(ok)
	req.Equal(q.ID, deleted.QuestionID)
}

func TestRoom_MementoRoundTrip_PreservesOpenVotes(t *testing.T) {
	req := require.New(t)
	room := newTestRoom()
	open, err := room.AddQuestion("owner", "Open one", "Still voting", time.Now())
	req.NoError(err)
	closed, err := room.AddQuestion("owner", "Closed one", "Already estimated", time.Now())
	req.NoError(err)
	req.NoError(room.CastVote("bob", open.ID, 26, time.Now()))
	req.NoError(room.CastVote("bob", closed.ID, 12, time.Now()))
	req.NoError(room.CloseVoting("owner", closed.ID, Mean))
	req.NoError(room.Join("bob"))
	room.FlushEvents()

	rec := RoomRecord{Code: room.Code, OwnerID: room.OwnerID, Status: RoomDeactivated, CreatedAt: room.CreatedAt}
	restored := RestoreRoom(rec, room.Memento())

	// Connections do not survive, questions and votes do
	req.Equal(0, restored.ParticipantCount())
	req.Equal(RoomDeactivated, restored.Status)

	snap := restored.Snapshot()
	req.Len(snap.Questions, 2)
	req.Equal(closed.ID, snap.Questions[0].ID)
	req.True(snap.Questions[0].Estimated)
	req.Equal(Hours(12), snap.Questions[0].Estimate)

	// The restored open question still refuses a duplicate vote
	req.ErrorIs(restored.CastVote("bob", open.ID, 5, time.Now()), errors.ErrConflict)
}
