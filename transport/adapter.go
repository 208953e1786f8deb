package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"poker-lab/contract"
	"poker-lab/domain"
	"poker-lab/errors"

	"github.com/coder/websocket"
)

const (
	outboundBuffer = 64
	writeTimeout   = 10 * time.Second
)

var _ contract.EventSink = (*Adapter)(nil)

// Adapter binds one websocket connection to one room session. It is the
// session's EventSink for that user and the user's only path into the
// session. The read loop and the write pump are its two goroutines; nothing
// it does can block the session loop.
type Adapter struct {
	log     *slog.Logger
	conn    *websocket.Conn
	session contract.Session
	out     chan OutboundMessage

	closeOnce sync.Once
	closedc   chan struct{}

	// Owned by the read loop.
	userID string
	joined bool
	left   bool
}

func NewAdapter(log *slog.Logger, conn *websocket.Conn, session contract.Session) *Adapter {
	return &Adapter{
		log:     log,
		conn:    conn,
		session: session,
		out:     make(chan OutboundMessage, outboundBuffer),
		closedc: make(chan struct{}),
	}
}

// Consume queues one broadcast for delivery. It never blocks: a connection
// that cannot drain its queue is reported saturated and the session drops
// it, instead of the whole room stalling behind one slow reader.
func (a *Adapter) Consume(evt domain.Event) error {
	select {
	case <-a.closedc:
		return errors.ErrSessionClosed
	default:
	}
	select {
	case a.out <- EncodeEvent(evt):
		return nil
	default:
		return errors.ErrBackpressure
	}
}

// Close is invoked by the session when this connection is superseded or the
// room terminates. Safe to call any number of times from any goroutine.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.closedc)
		_ = a.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// Serve runs the connection until the peer disconnects, the room closes it,
// or ctx ends. A connection that drops without a leave message has one
// synthesized for it, so headcounts track live sockets.
func (a *Adapter) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.writePump(ctx)

	defer func() {
		if a.joined && !a.left {
			_ = a.session.Submit(domain.LeaveCommand{RoomCode: a.session.Code(), UserID: a.userID}, nil)
		}
		if a.joined {
			a.session.Detach(a.userID, a)
		}
		_ = a.Close()
	}()

	a.readLoop(ctx)
}

func (a *Adapter) readLoop(ctx context.Context) {
	for {
		select {
		case <-a.closedc:
			return
		default:
		}

		_, data, err := a.conn.Read(ctx)
		if err != nil {
			return
		}

		msg, err := DecodeInbound(data)
		if err != nil {
			a.ack(err)
			continue
		}

		// The first accepted frame must establish who is speaking.
		if !a.joined {
			if msg.Type != "join" || msg.UserID == "" {
				a.ack(fmt.Errorf("%w: join first", errors.ErrMalformed))
				continue
			}
			// Attach before the join commits so this connection receives
			// its own user_joined broadcast.
			a.userID = msg.UserID
			a.session.Attach(a.userID, a)
			if err := a.dispatch(ctx, domain.JoinCommand{RoomCode: a.session.Code(), UserID: a.userID}); err != nil {
				a.session.Detach(a.userID, a)
				a.userID = ""
				a.ack(err)
				continue
			}
			a.joined = true
			continue
		}

		// After the join, identity comes from the connection, never from
		// the frame: nobody votes on someone else's behalf.
		cmd, err := msg.Command(a.session.Code(), a.userID)
		if err != nil {
			a.ack(err)
			continue
		}
		if err := a.dispatch(ctx, cmd); err != nil {
			a.ack(err)
			continue
		}
		if msg.Type == "leave" {
			a.left = true
			return
		}
	}
}

// dispatch submits one command and waits for the session's verdict, so acks
// go back in the order commands were sent.
func (a *Adapter) dispatch(ctx context.Context, cmd domain.Command) error {
	reply := make(chan error, 1)
	if err := a.session.Submit(cmd, reply); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-a.closedc:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ack reports a rejection to this sender only. Best effort: if even the ack
// queue is full the connection is beyond saving.
func (a *Adapter) ack(err error) {
	select {
	case a.out <- ErrorAck(err):
	default:
	}
}

func (a *Adapter) writePump(ctx context.Context) {
	for {
		select {
		case msg := <-a.out:
			data, err := json.Marshal(msg)
			if err != nil {
				a.log.Error("Encoding outbound frame failed", "type", msg.Type, "error", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = a.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				_ = a.Close()
				return
			}
		case <-a.closedc:
			return
		case <-ctx.Done():
			return
		}
	}
}
