// Package repositories persists rooms and users in BadgerDB. Values are
// JSON; keys are prefixed by entity kind so each repository owns a disjoint
// keyspace in the shared database.
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"

	"poker-lab/contract"
	"poker-lab/domain"
	"poker-lab/errors"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.RoomStore = (*RoomRepository)(nil)

type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) *RoomRepository {
	return &RoomRepository{db: db, log: log}
}

func roomKey(code domain.RoomCode) []byte  { return []byte(fmt.Sprintf("room:%s", code)) }
func stateKey(code domain.RoomCode) []byte { return []byte(fmt.Sprintf("state:%s", code)) }

// CreateRoom stores a fresh room record. An existing record for the same
// code fails with ErrConflict, so the code generator can retry with a new
// one.
func (r *RoomRepository) CreateRoom(rec domain.RoomRecord) error {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding room %s: %w", rec.Code, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(rec.Code))
		switch {
		case err == nil:
			return fmt.Errorf("room %s: %w", rec.Code, errors.ErrConflict)
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(roomKey(rec.Code), bytes)
	})
}

func (r *RoomRepository) GetRoom(code domain.RoomCode) (domain.RoomRecord, error) {
	var rec domain.RoomRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(code))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("room %s: %w", code, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, err
}

// ListRoomsByOwner scans the room keyspace and keeps the owner's records,
// newest first. Room counts stay small enough that a prefix scan beats
// maintaining a second index.
func (r *RoomRepository) ListRoomsByOwner(ownerID string) ([]domain.RoomRecord, error) {
	var out []domain.RoomRecord
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("room:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec domain.RoomRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if rec.OwnerID == ownerID {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *RoomRepository) SetRoomStatus(code domain.RoomCode, status domain.RoomStatus) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(code))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("room %s: %w", code, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var rec domain.RoomRecord
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
			return err
		}
		rec.Status = status
		bytes, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(roomKey(code), bytes)
	})
}

// SaveState persists a terminated session's memento so the next session for
// this room resumes from it.
func (r *RoomRepository) SaveState(m domain.RoomMemento) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding state of room %s: %w", m.Code, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey(m.Code), bytes)
	})
}

func (r *RoomRepository) LoadState(code domain.RoomCode) (domain.RoomMemento, bool, error) {
	var m domain.RoomMemento
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(code))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	return m, found, err
}

func (r *RoomRepository) DeleteState(code domain.RoomCode) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(stateKey(code))
	})
}
