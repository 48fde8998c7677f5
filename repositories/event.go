//go:generate go run go.uber.org/mock/mockgen -source=event.go -destination=../mocks/mock_event_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"lanhub/domain/event"
	"lanhub/errors"
)

type IEventRepository interface {
	Append(roomID string, eventType event.Type, data any) (event.Event, error)
	GetAll(roomID string) ([]event.Event, error)
	GetAfter(roomID string, afterID int64) ([]event.Event, error)
}

// EventRepository persists the append-only event log of each room. Event IDs
// are allocated from the room's sequence counter inside the append
// transaction, under the room's write lock: two concurrent appends can never
// observe the same counter value, so IDs are exactly 1..N with no gaps.
type EventRepository struct {
	db    *badger.DB
	log   *slog.Logger
	locks *KeyedMutex
}

// NewEventRepository builds a repository over db. locks must be the same
// KeyedMutex handed to NewRoomRepository, so an append and an aggregate
// write on one room never run as concurrent transactions.
func NewEventRepository(db *badger.DB, log *slog.Logger, locks *KeyedMutex) *EventRepository {
	return &EventRepository{db: db, log: log, locks: locks}
}

// Append allocates the next event ID for the room and durably stores the new
// event before returning it. The payload must be JSON-serializable; a nil
// payload is stored as an empty object.
func (e *EventRepository) Append(roomID string, eventType event.Type, data any) (event.Event, error) {
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return event.Event{}, fmt.Errorf("%w: payload not serializable: %v", errors.ErrValidation, err)
	}

	defer e.locks.Lock(roomID).Unlock()

	var ev event.Event
	err = e.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		} else if err != nil {
			return err
		}

		var last int64
		item, err := txn.Get(seqKey(roomID))
		switch err {
		case nil:
			if err := item.Value(func(val []byte) error {
				last = decodeSeq(val)
				return nil
			}); err != nil {
				return err
			}
		case badger.ErrKeyNotFound:
			last = 0
		default:
			return err
		}

		ev = event.Event{
			ID:        last + 1,
			Type:      eventType,
			Data:      payload,
			Timestamp: time.Now().Unix(),
		}
		bytes, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := txn.Set(eventKey(roomID, ev.ID), bytes); err != nil {
			return err
		}
		return txn.Set(seqKey(roomID), encodeSeq(ev.ID))
	})
	if err != nil {
		return event.Event{}, err
	}

	e.log.Debug("event appended", "room", roomID, "id", ev.ID, "type", ev.Type)
	return ev, nil
}

// GetAll returns every event of the room in ascending ID order.
func (e *EventRepository) GetAll(roomID string) ([]event.Event, error) {
	return e.readFrom(roomID, eventPrefix(roomID))
}

// GetAfter returns events with ID strictly greater than afterID, in
// ascending ID order. It seeks straight to afterID+1 instead of scanning the
// whole log, which is what polling clients hit on every request.
func (e *EventRepository) GetAfter(roomID string, afterID int64) ([]event.Event, error) {
	return e.readFrom(roomID, eventKey(roomID, afterID+1))
}

func (e *EventRepository) readFrom(roomID string, seek []byte) ([]event.Event, error) {
	events := []event.Event{}
	err := e.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); err == badger.ErrKeyNotFound {
			return errors.ErrRoomNotFound
		} else if err != nil {
			return err
		}

		prefix := eventPrefix(roomID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var ev event.Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
