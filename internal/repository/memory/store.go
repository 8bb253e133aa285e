// Package memory is an in-process implementation of repository.Store backed
// by go-memdb. Write transactions are serialized by memdb's writer lock and
// readers only ever see committed snapshots, which gives the same guarantees
// the swap workflows rely on in PostgreSQL.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/hashicorp/go-memdb"
)

const (
	tableEvents = "events"
	tableSwaps  = "swap_requests"
	tableUsers  = "users"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableEvents: {
				Name: tableEvents,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"owner": {
						Name:    "owner",
						Indexer: &memdb.StringFieldIndex{Field: "UserID"},
					},
					"status": {
						Name:    "status",
						Indexer: &memdb.StringFieldIndex{Field: "Status"},
					},
				},
			},
			tableSwaps: {
				Name: tableSwaps,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"initiator": {
						Name:    "initiator",
						Indexer: &memdb.StringFieldIndex{Field: "InitiatorID"},
					},
					"receiver": {
						Name:    "receiver",
						Indexer: &memdb.StringFieldIndex{Field: "ReceiverID"},
					},
					"initiator_slot": {
						Name:    "initiator_slot",
						Indexer: &memdb.StringFieldIndex{Field: "InitiatorSlotID"},
					},
					"receiver_slot": {
						Name:    "receiver_slot",
						Indexer: &memdb.StringFieldIndex{Field: "ReceiverSlotID"},
					},
				},
			},
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}
}

// Store реализует repository.Store в памяти процесса
type Store struct {
	db *memdb.MemDB

	mu   sync.Mutex
	last time.Time
}

// NewStore создаёт пустое хранилище
func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &Store{db: db}, nil
}

// now returns strictly increasing UTC timestamps so that "newest first"
// ordering is stable even for writes within the same clock tick.
func (s *Store) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Repositories возвращает репозитории вне транзакции
func (s *Store) Repositories() repository.Repositories {
	return s.bind(nil)
}

func (s *Store) bind(txn *memdb.Txn) repository.Repositories {
	u := unit{store: s, txn: txn}
	return repository.Repositories{
		Events: &eventRepository{u},
		Swaps:  &swapRequestRepository{u},
		Users:  &userRepository{u},
	}
}

// Ping всегда успешен
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// InTx выполняет fn в одной пишущей транзакции memdb.
// Any error from fn aborts the transaction and discards every write.
// An expired deadline is reported as repository.ErrTransient.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return repository.TimeoutAsTransient(err)
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(ctx, s.bind(txn)); err != nil {
		return repository.TimeoutAsTransient(err)
	}
	if err := ctx.Err(); err != nil {
		return repository.TimeoutAsTransient(err)
	}

	txn.Commit()
	return nil
}

// PutUser добавляет или заменяет пользователя. The auth service owns users;
// this is how they get into an in-memory deployment and into tests.
func (s *Store) PutUser(user *model.User) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if err := txn.Insert(tableUsers, &u); err != nil {
		return fmt.Errorf("put user: %w", err)
	}

	txn.Commit()
	return nil
}

// unit is the transaction a repository is bound to; txn == nil means
// every call opens its own short transaction.
type unit struct {
	store *Store
	txn   *memdb.Txn
}

func (u unit) read(fn func(txn *memdb.Txn) error) error {
	if u.txn != nil {
		return fn(u.txn)
	}
	txn := u.store.db.Txn(false)
	defer txn.Abort()
	return fn(txn)
}

func (u unit) write(fn func(txn *memdb.Txn) error) error {
	if u.txn != nil {
		return fn(u.txn)
	}
	txn := u.store.db.Txn(true)
	defer txn.Abort()
	if err := fn(txn); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
