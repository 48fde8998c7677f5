//go:generate go run go.uber.org/mock/mockgen -source=eventbus.go -destination=../mocks/mock_eventbus.go -package=mocks
package eventbus

import (
	"fmt"
	"log/slog"

	"lanhub/domain/event"
	"lanhub/errors"
	"lanhub/repositories"
)

type IEventBus interface {
	Emit(roomID string, eventType event.Type, payload any) (event.Event, error)
	Poll(roomID string, afterID int64) ([]event.Event, error)
	GetAllEvents(roomID string) ([]event.Event, error)
}

// EventBus is the single entry point feature modules use to broadcast state
// changes and pollers use to consume them. Every operation validates room
// existence first; the bus itself never touches room aggregate fields.
type EventBus struct {
	rooms  repositories.IRoomRepository
	events repositories.IEventRepository
	log    *slog.Logger
}

func NewEventBus(rooms repositories.IRoomRepository, events repositories.IEventRepository, log *slog.Logger) *EventBus {
	return &EventBus{rooms: rooms, events: events, log: log}
}

// Emit appends a new event to the room's log and returns it. Callers that
// also mutate room aggregate state must do so before emitting, so a poller
// never observes an event whose corresponding state change is not yet
// visible.
func (b *EventBus) Emit(roomID string, eventType event.Type, payload any) (event.Event, error) {
	if roomID == "" || eventType == "" {
		return event.Event{}, fmt.Errorf("%w: room id and event type are required", errors.ErrValidation)
	}
	if err := b.ensureRoom(roomID); err != nil {
		return event.Event{}, err
	}
	return b.events.Append(roomID, eventType, payload)
}

// Poll returns the events with ID strictly greater than afterID, in
// ascending order. It is idempotent and side-effect-free; any number of
// pollers may call it concurrently.
func (b *EventBus) Poll(roomID string, afterID int64) ([]event.Event, error) {
	if err := b.ensureRoom(roomID); err != nil {
		return nil, err
	}
	return b.events.GetAfter(roomID, afterID)
}

// GetAllEvents returns the full log, for debugging and initial sync.
func (b *EventBus) GetAllEvents(roomID string) ([]event.Event, error) {
	if err := b.ensureRoom(roomID); err != nil {
		return nil, err
	}
	return b.events.GetAll(roomID)
}

func (b *EventBus) ensureRoom(roomID string) error {
	found, err := b.rooms.Exists(roomID)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrRoomNotFound
	}
	return nil
}
