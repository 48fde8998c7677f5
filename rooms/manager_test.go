package rooms

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"lanhub/domain"
	"lanhub/domain/event"
	"lanhub/errors"
	"lanhub/eventbus"
	"lanhub/repositories"
)

func newTestManager(t *testing.T) (*Manager, *eventbus.EventBus) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	locks := repositories.NewKeyedMutex()
	roomRepository := repositories.NewRoomRepository(db, slog.Default(), "", locks)
	eventRepository := repositories.NewEventRepository(db, slog.Default(), locks)
	bus := eventbus.NewEventBus(roomRepository, eventRepository, slog.Default())
	return NewManager(roomRepository, bus, slog.Default()), bus
}

func Test_CreateRoom_Round_Trip(t *testing.T) {
	req := require.New(t)
	manager, bus := newTestManager(t)

	roomID, err := manager.CreateRoom(domain.RoleTeacher)
	req.NoError(err)
	req.Len(roomID, 6)

	room, err := manager.GetRoomInfo(roomID)
	req.NoError(err)
	req.Equal(roomID, room.ID)
	req.Empty(room.Participants)
	req.Empty(room.Files)
	req.Empty(room.Polls)
	req.Empty(room.Notes)

	events, err := bus.GetAllEvents(roomID)
	req.NoError(err)
	req.Len(events, 1)
	req.Equal(event.TypeRoomCreated, events[0].Type)
	req.Equal(int64(1), events[0].ID)
}

func Test_JoinRoom_First_Teacher_Becomes_Creator(t *testing.T) {
	req := require.New(t)
	manager, bus := newTestManager(t)

	roomID, err := manager.CreateRoom(domain.RoleTeacher)
	req.NoError(err)

	room, err := manager.JoinRoom(roomID, "Dana", domain.RoleTeacher)
	req.NoError(err)
	req.Equal("Dana", room.CreatedBy)
	req.Len(room.Participants, 1)

	// A later teacher does not displace the creator.
	room, err = manager.JoinRoom(roomID, "Marc", domain.RoleTeacher)
	req.NoError(err)
	req.Equal("Dana", room.CreatedBy)
	req.Len(room.Participants, 2)

	events, err := bus.Poll(roomID, 1)
	req.NoError(err)
	req.Len(events, 2)
	req.Equal(event.TypeUserJoined, events[0].Type)
	req.Equal(int64(2), events[0].ID)
	req.Equal(int64(3), events[1].ID)
}

func Test_JoinRoom_Is_Idempotent_Per_Username(t *testing.T) {
	req := require.New(t)
	manager, bus := newTestManager(t)

	roomID, err := manager.CreateRoom(domain.RoleTeacher)
	req.NoError(err)

	for i := 0; i < 3; i++ {
		room, err := manager.JoinRoom(roomID, "alice", domain.RoleStudent)
		req.NoError(err)
		req.Len(room.Participants, 1)
	}

	events, err := bus.Poll(roomID, 1)
	req.NoError(err)
	req.Len(events, 1)
	req.Equal(event.TypeUserJoined, events[0].Type)
}

func Test_JoinRoom_Usernames_Are_Case_Sensitive(t *testing.T) {
	req := require.New(t)
	manager, _ := newTestManager(t)

	roomID, err := manager.CreateRoom(domain.RoleTeacher)
	req.NoError(err)

	_, err = manager.JoinRoom(roomID, "alice", domain.RoleStudent)
	req.NoError(err)
	room, err := manager.JoinRoom(roomID, "Alice", domain.RoleStudent)
	req.NoError(err)
	req.Len(room.Participants, 2)
}

func Test_JoinRoom_Validation_And_Missing_Room(t *testing.T) {
	req := require.New(t)
	manager, _ := newTestManager(t)

	_, err := manager.JoinRoom("", "Dana", domain.RoleTeacher)
	req.ErrorIs(err, errors.ErrValidation)

	_, err = manager.JoinRoom("ZZZZZZ", "", domain.RoleTeacher)
	req.ErrorIs(err, errors.ErrValidation)

	_, err = manager.JoinRoom("ZZZZZZ", "Dana", domain.RoleTeacher)
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func Test_DeleteRoom(t *testing.T) {
	req := require.New(t)
	manager, bus := newTestManager(t)

	req.ErrorIs(manager.DeleteRoom("ZZZZZZ"), errors.ErrRoomNotFound)

	roomID, err := manager.CreateRoom(domain.RoleTeacher)
	req.NoError(err)
	req.NoError(manager.DeleteRoom(roomID))

	_, err = manager.GetRoomInfo(roomID)
	req.ErrorIs(err, errors.ErrRoomNotFound)
	_, err = bus.Poll(roomID, 0)
	req.ErrorIs(err, errors.ErrRoomNotFound)
	_, err = bus.Emit(roomID, "test_message", nil)
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

// seedFailBus rejects every emit and remembers the last room it was asked
// to write to.
type seedFailBus struct {
	roomID string
}

func (b *seedFailBus) Emit(roomID string, _ event.Type, _ any) (event.Event, error) {
	b.roomID = roomID
	return event.Event{}, fmt.Errorf("log unavailable")
}

func (b *seedFailBus) Poll(string, int64) ([]event.Event, error)  { return nil, nil }
func (b *seedFailBus) GetAllEvents(string) ([]event.Event, error) { return nil, nil }

func Test_CreateRoom_Rolls_Back_When_Seed_Emit_Fails(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	roomRepository := repositories.NewRoomRepository(db, slog.Default(), "", repositories.NewKeyedMutex())
	bus := &seedFailBus{}
	manager := NewManager(roomRepository, bus, slog.Default())

	_, err = manager.CreateRoom(domain.RoleTeacher)
	req.Error(err)

	// The half-created room must not survive without its seed event.
	req.NotEmpty(bus.roomID)
	found, err := roomRepository.Exists(bus.roomID)
	req.NoError(err)
	req.False(found)
}
