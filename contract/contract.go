// Package contract holds the interfaces the runtime, transport and HTTP
// layers agree on, so none of them imports another's concrete types.
package contract

import (
	"context"
	"reflect"

	"poker-lab/domain"
)

type WorkerName string

// Worker doesn't protect itself; the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives every broadcast event of the room it is attached to,
// in commit order. Consume must not block the session loop; an error tells
// the session this sink is dead and should be detached.
type EventSink interface {
	Consume(e domain.Event) error
}

// Session is one live room: the serial owner of its state.
type Session interface {
	// Submit enqueues a command without blocking. The command's rejection
	// or acceptance is delivered on reply (which must be buffered).
	// Submit itself only fails when the queue is saturated or the session
	// already terminated.
	Submit(cmd domain.Command, reply chan<- error) error
	// Attach subscribes a participant's sink to the broadcast feed. A
	// second Attach for the same user id supersedes the first: the prior
	// sink is closed.
	Attach(userID string, sink EventSink)
	// Detach unsubscribes, but only if sink is still the current one for
	// that user, so a superseded connection cannot detach its successor.
	Detach(userID string, sink EventSink)
	// View answers a consistent snapshot through the apply loop.
	View(ctx context.Context) (domain.RoomSnapshot, error)
	Code() domain.RoomCode
}

// SessionRegistry maps room codes to live sessions.
type SessionRegistry interface {
	// GetOrCreate returns the live session for a code, starting one (and
	// restoring its persisted state) when none runs. Safe under concurrent
	// calls for the same code: exactly one session per code exists.
	GetOrCreate(ctx context.Context, code domain.RoomCode) (Session, error)
	// Lookup never creates; it fails with ErrNotFound for unknown or
	// fully torn down rooms.
	Lookup(code domain.RoomCode) (Session, error)
}

// RoomStore is the durable side of rooms: identity records created by the
// REST surface and state snapshots written when sessions terminate.
type RoomStore interface {
	CreateRoom(rec domain.RoomRecord) error
	GetRoom(code domain.RoomCode) (domain.RoomRecord, error)
	// ListRoomsByOwner returns every room the user created, newest first.
	ListRoomsByOwner(ownerID string) ([]domain.RoomRecord, error)
	SetRoomStatus(code domain.RoomCode, status domain.RoomStatus) error
	SaveState(m domain.RoomMemento) error
	LoadState(code domain.RoomCode) (domain.RoomMemento, bool, error)
	DeleteState(code domain.RoomCode) error
}

// UserStore holds registered accounts. Usernames are unique; CreateUser
// fails with ErrUsernameTaken on a duplicate.
type UserStore interface {
	CreateUser(u domain.User) error
	GetUser(id string) (domain.User, error)
	GetUserByName(name string) (domain.User, error)
}
