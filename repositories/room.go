//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"

	"lanhub/domain"
	"lanhub/errors"
)

type IRoomRepository interface {
	Create(roomID string) error
	Exists(roomID string) (bool, error)
	Get(roomID string) (domain.Room, error)
	Update(roomID string, update domain.Update) error
	Mutate(roomID string, fn func(*domain.Room) error) error
	Delete(roomID string) error
}

// RoomRepository persists one Room aggregate per room in BadgerDB, plus the
// event sequence counter that backs the room's log: a Room and its Event Log
// are created in the same transaction and deleted together, so neither can
// exist without the other.
type RoomRepository struct {
	db        *badger.DB
	log       *slog.Logger
	locks     *KeyedMutex
	filesRoot string
}

// NewRoomRepository builds a repository over db. locks must be the same
// KeyedMutex handed to NewEventRepository for that db.
func NewRoomRepository(db *badger.DB, log *slog.Logger, filesRoot string, locks *KeyedMutex) *RoomRepository {
	return &RoomRepository{
		db:        db,
		log:       log,
		locks:     locks,
		filesRoot: filesRoot,
	}
}

func (r *RoomRepository) Create(roomID string) error {
	room := domain.Room{
		ID:           roomID,
		Created:      time.Now().Unix(),
		Participants: []domain.Participant{},
		Files:        []domain.FileRecord{},
		Polls:        []domain.Poll{},
	}
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err == nil {
			return errors.ErrRoomExists
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(roomKey(roomID), data); err != nil {
			return err
		}
		// Seed the event sequence counter alongside the room record.
		return txn.Set(seqKey(roomID), encodeSeq(0))
	})
}

func (r *RoomRepository) Exists(roomID string) (bool, error) {
	var found bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(roomID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (r *RoomRepository) Get(roomID string) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &room)
		})
	})
	return room, err
}

// Update merges the non-nil fields of the partial update into the stored
// room. Concurrent updates to the same room are serialized, so one writer's
// merge never drops another writer's unrelated field changes.
func (r *RoomRepository) Update(roomID string, update domain.Update) error {
	return r.Mutate(roomID, func(room *domain.Room) error {
		update.Apply(room)
		return nil
	})
}

// Mutate runs fn on the stored room under the room's write lock and persists
// the result. If fn returns an error nothing is written. This is the
// read-modify-write primitive the feature modules build their check-then-act
// sequences on.
func (r *RoomRepository) Mutate(roomID string, fn func(*domain.Room) error) error {
	defer r.locks.Lock(roomID).Unlock()

	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		var room domain.Room
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &room)
		}); err != nil {
			return err
		}

		if err := fn(&room); err != nil {
			return err
		}

		data, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("marshal room: %w", err)
		}
		return txn.Set(roomKey(roomID), data)
	})
}

// Delete removes the room record, its event log and sequence counter, and
// any file blobs the room owns.
func (r *RoomRepository) Delete(roomID string) error {
	defer r.locks.Lock(roomID).Unlock()

	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		} else if err != nil {
			return err
		}
		if err := txn.Delete(roomKey(roomID)); err != nil {
			return err
		}
		if err := txn.Delete(seqKey(roomID)); err != nil {
			return err
		}

		prefix := eventPrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if r.filesRoot != "" {
		blobDir := filepath.Join(r.filesRoot, roomID)
		if err := os.RemoveAll(blobDir); err != nil {
			r.log.Error("removing room file blobs failed", "room", roomID, "error", err)
			return err
		}
	}
	return nil
}

func encodeSeq(n int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func decodeSeq(buf []byte) int64 {
	if len(buf) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf))
}
