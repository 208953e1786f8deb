package transport_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"poker-lab/contract"
	"poker-lab/domain"
	"poker-lab/errors"
	"poker-lab/transport"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// syncSession applies commands inline and fans out immediately: enough of a
// room session to exercise the adapter without goroutine machinery.
type syncSession struct {
	mu    sync.Mutex
	room  *domain.Room
	sinks map[string]contract.EventSink
}

func newSyncSession(code domain.RoomCode, owner string) *syncSession {
	return &syncSession{
		room:  domain.NewRoom(domain.RoomRecord{Code: code, OwnerID: owner, Status: domain.RoomOpen}),
		sinks: make(map[string]contract.EventSink),
	}
}

func (s *syncSession) Code() domain.RoomCode { return s.room.Code }

func (s *syncSession) Submit(cmd domain.Command, reply chan<- error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

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
		err = s.room.CloseVoting(c.UserID, c.QuestionID, domain.Mean)
	case domain.DeleteQuestionCommand:
		err = s.room.DeleteQuestion(c.UserID, c.QuestionID)
	default:
		err = errors.ErrMalformed
	}
	if reply != nil {
		reply <- err
	}
	if err == nil {
		for _, evt := range s.room.FlushEvents() {
			for _, sink := range s.sinks {
				_ = sink.Consume(evt)
			}
		}
	}
	return nil
}

func (s *syncSession) Attach(userID string, sink contract.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks[userID] = sink
}

func (s *syncSession) Detach(userID string, sink contract.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sinks[userID] == sink {
		delete(s.sinks, userID)
	}
}

func (s *syncSession) View(ctx context.Context) (domain.RoomSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Snapshot(), nil
}

type fakeRegistry struct{ session contract.Session }

func (f *fakeRegistry) GetOrCreate(ctx context.Context, code domain.RoomCode) (contract.Session, error) {
	return f.session, nil
}

func (f *fakeRegistry) Lookup(code domain.RoomCode) (contract.Session, error) {
	return f.session, nil
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialRoom(t *testing.T, url string) *wsClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, strings.Replace(url, "http", "ws", 1)+"/ws/ABC123", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(frame string) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(c.t, c.conn.Write(ctx, websocket.MessageText, []byte(frame)))
}

func (c *wsClient) recv() transport.OutboundMessage {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := c.conn.Read(ctx)
	require.NoError(c.t, err)
	var msg transport.OutboundMessage
	require.NoError(c.t, json.Unmarshal(data, &msg))
	return msg
}

func newServer(t *testing.T, session contract.Session) *httptest.Server {
	t.Helper()
	router := chi.NewRouter()
	router.Get("/ws/{room_code}", transport.Handler(slog.Default(), &fakeRegistry{session: session}))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func Test_Adapter_JoinEchoesOwnBroadcast(t *testing.T) {
	req := require.New(t)
	srv := newServer(t, newSyncSession("ABC123", "owner"))

	client := dialRoom(t, srv.URL)
	client.send(`{"type":"join","user_id":"alice"}`)

	msg := client.recv()
	req.Equal("user_joined", msg.Type)
	req.Equal("alice", msg.UserID)
	req.NotNil(msg.Count)
	req.Equal(1, *msg.Count)
}

func Test_Adapter_CommandBeforeJoinGetsErrorAck(t *testing.T) {
	req := require.New(t)
	srv := newServer(t, newSyncSession("ABC123", "owner"))

	client := dialRoom(t, srv.URL)
	client.send(`{"type":"new_question","question_title":"Q"}`)

	msg := client.recv()
	req.Equal("error", msg.Type)
	req.NotEmpty(msg.Error)

	// The connection survives the rejection.
	client.send(`{"type":"join","user_id":"alice"}`)
	req.Equal("user_joined", client.recv().Type)
}

func Test_Adapter_RejectionGoesOnlyToSender(t *testing.T) {
	req := require.New(t)
	srv := newServer(t, newSyncSession("ABC123", "owner"))

	owner := dialRoom(t, srv.URL)
	owner.send(`{"type":"join","user_id":"owner"}`)
	req.Equal("user_joined", owner.recv().Type)

	alice := dialRoom(t, srv.URL)
	alice.send(`{"type":"join","user_id":"alice"}`)
	req.Equal("user_joined", alice.recv().Type) // alice's own join
	req.Equal("user_joined", owner.recv().Type) // observed by owner

	// Only the owner may ask questions.
	alice.send(`{"type":"new_question","question_title":"Q","question_text":"T"}`)
	msg := alice.recv()
	req.Equal("error", msg.Type)
	req.Contains(msg.Error, "forbidden")

	// The owner saw nothing of it; the next frame they receive is a real one.
	owner.send(`{"type":"new_question","question_title":"Q","question_text":"T"}`)
	next := owner.recv()
	req.Equal("new_question", next.Type)
	req.NotNil(next.Question)
	req.Equal("Q", next.Question.QuestionTitle)
}

func Test_Adapter_DisconnectSynthesizesLeave(t *testing.T) {
	req := require.New(t)
	session := newSyncSession("ABC123", "owner")
	srv := newServer(t, session)

	alice := dialRoom(t, srv.URL)
	alice.send(`{"type":"join","user_id":"alice"}`)
	req.Equal("user_joined", alice.recv().Type)

	bob := dialRoom(t, srv.URL)
	bob.send(`{"type":"join","user_id":"bob"}`)
	req.Equal("user_joined", bob.recv().Type)
	req.Equal("user_joined", alice.recv().Type)

	// Alice's tab dies without a leave frame.
	req.NoError(alice.conn.Close(websocket.StatusGoingAway, "tab closed"))

	msg := bob.recv()
	req.Equal("user_left", msg.Type)
	req.Equal("alice", msg.UserID)
	req.NotNil(msg.Count)
	req.Equal(1, *msg.Count)
}

func Test_Adapter_ExplicitLeaveEndsConnection(t *testing.T) {
	req := require.New(t)
	srv := newServer(t, newSyncSession("ABC123", "owner"))

	client := dialRoom(t, srv.URL)
	client.send(`{"type":"join","user_id":"alice"}`)
	req.Equal("user_joined", client.recv().Type)

	client.send(`{"type":"leave"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, _, err := client.conn.Read(ctx)
		if err != nil {
			return // server closed the socket after the leave
		}
	}
}
