package notes

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"lanhub/errors"
	"lanhub/eventbus"
	"lanhub/repositories"
)

func newTestFeature(t *testing.T) (*Feature, *eventbus.EventBus, *repositories.RoomRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	locks := repositories.NewKeyedMutex()
	roomRepository := repositories.NewRoomRepository(db, slog.Default(), "", locks)
	eventRepository := repositories.NewEventRepository(db, slog.Default(), locks)
	bus := eventbus.NewEventBus(roomRepository, eventRepository, slog.Default())
	return NewFeature(roomRepository, bus, slog.Default()), bus, roomRepository
}

func Test_Update_And_Get(t *testing.T) {
	req := require.New(t)
	feature, bus, roomRepository := newTestFeature(t)
	req.NoError(roomRepository.Create("AB3XQ9"))

	updated, err := feature.Update("AB3XQ9", "key points from today", "Dana")
	req.NoError(err)
	req.Equal("key points from today", updated.Content)
	req.Equal("Dana", updated.UpdatedBy)
	req.NotZero(updated.UpdatedAt)

	fetched, err := feature.Get("AB3XQ9")
	req.NoError(err)
	req.Equal(updated, fetched)

	events, err := bus.GetAllEvents("AB3XQ9")
	req.NoError(err)
	req.Len(events, 1)
	req.Equal("notes_updated", string(events[0].Type))

	var payload map[string]any
	req.NoError(json.Unmarshal(events[0].Data, &payload))
	req.Equal("key points from today", payload["content"])
	req.Equal("Dana", payload["updatedBy"])
}

func Test_Clear(t *testing.T) {
	req := require.New(t)
	feature, bus, roomRepository := newTestFeature(t)
	req.NoError(roomRepository.Create("AB3XQ9"))

	_, err := feature.Update("AB3XQ9", "scratch", "Dana")
	req.NoError(err)
	req.NoError(feature.Clear("AB3XQ9", "Marc"))

	fetched, err := feature.Get("AB3XQ9")
	req.NoError(err)
	req.Empty(fetched.Content)
	req.Equal("Marc", fetched.UpdatedBy)

	events, err := bus.GetAllEvents("AB3XQ9")
	req.NoError(err)
	req.Len(events, 2)
	req.Equal("notes_cleared", string(events[1].Type))
}

func Test_Notes_On_Missing_Room(t *testing.T) {
	req := require.New(t)
	feature, _, _ := newTestFeature(t)

	_, err := feature.Update("ZZZZZZ", "x", "Dana")
	req.ErrorIs(err, errors.ErrRoomNotFound)
	_, err = feature.Get("ZZZZZZ")
	req.ErrorIs(err, errors.ErrRoomNotFound)
	req.ErrorIs(feature.Clear("ZZZZZZ", "Dana"), errors.ErrRoomNotFound)
}
