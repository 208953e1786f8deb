package runtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"poker-lab/contract"
	"poker-lab/domain"
	"poker-lab/errors"

	"github.com/stretchr/testify/require"
)

func Test_Registry_ConcurrentGetOrCreateYieldsOneSession(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, time.Minute)
	req.NoError(h.store.CreateRoom(domain.RoomRecord{
		Code: "ABC123", OwnerID: "owner", Status: domain.RoomOpen, CreatedAt: time.Now(),
	}))

	const callers = 16
	var wg sync.WaitGroup
	sessions := make([]contract.Session, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := h.registry.GetOrCreate(context.Background(), "ABC123")
			require.NoError(t, err)
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		req.Same(sessions[0], sessions[i])
	}
}

func Test_Registry_UnknownRoomCode(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, time.Minute)

	_, err := h.registry.GetOrCreate(context.Background(), "NOSUCH")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = h.registry.Lookup("NOSUCH")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Registry_EmptyRoomLeavesNoStateBehind(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, 60*time.Millisecond)
	sess := h.createRoom(t, "ABC123", "owner")

	req.NoError(submit(t, sess, domain.JoinCommand{RoomCode: "ABC123", UserID: "owner"}))
	req.NoError(submit(t, sess, domain.LeaveCommand{RoomCode: "ABC123", UserID: "owner"}))

	req.Eventually(func() bool {
		_, err := h.registry.Lookup("ABC123")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	_, found, err := h.store.LoadState("ABC123")
	req.NoError(err)
	req.False(found, "a room without questions has nothing worth keeping")
}

func Test_Registry_GetOrCreateReplacesTerminatedSession(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, 60*time.Millisecond)
	sess := h.createRoom(t, "ABC123", "owner")

	req.Eventually(func() bool {
		_, err := h.registry.Lookup("ABC123")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	fresh, err := h.registry.GetOrCreate(context.Background(), "ABC123")
	req.NoError(err)
	req.NotSame(sess, fresh)
	req.NoError(submit(t, fresh, domain.JoinCommand{RoomCode: "ABC123", UserID: "owner"}))
}
