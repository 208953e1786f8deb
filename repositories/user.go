package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"poker-lab/contract"
	"poker-lab/domain"
	"poker-lab/errors"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

func userKey(id string) []byte       { return []byte(fmt.Sprintf("user:%s", id)) }
func userNameKey(name string) []byte { return []byte(fmt.Sprintf("uname:%s", name)) }

// CreateUser stores the account and a name index entry in one transaction,
// so two concurrent registrations of the same name cannot both win.
func (r *UserRepository) CreateUser(u domain.User) error {
	bytes, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user %s: %w", u.ID, err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(userNameKey(u.Name))
		switch {
		case err == nil:
			return fmt.Errorf("username %s: %w", u.Name, errors.ErrUsernameTaken)
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set(userNameKey(u.Name), []byte(u.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(u.ID), bytes)
	})
}

func (r *UserRepository) GetUser(id string) (domain.User, error) {
	var u domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("user %s: %w", id, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &u)
		})
	})
	return u, err
}

func (r *UserRepository) GetUserByName(name string) (domain.User, error) {
	var id string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userNameKey(name))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("user %s: %w", name, errors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return domain.User{}, err
	}
	return r.GetUser(id)
}
