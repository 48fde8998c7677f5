package polls

import (
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

func Test_Create_Poll(t *testing.T) {
	req := require.New(t)
	feature, bus, roomRepository := newTestFeature(t)
	req.NoError(roomRepository.Create("AB3XQ9"))

	poll, err := feature.Create("AB3XQ9", CreateRequest{
		Question: "Lunch?",
		Options:  []string{"Pizza", "Sushi"},
	}, "Dana")
	req.NoError(err)
	req.NotEmpty(poll.ID)
	req.True(poll.Active)
	req.Equal("Dana", poll.CreatedBy)
	req.Empty(poll.Votes)

	list, err := feature.List("AB3XQ9")
	req.NoError(err)
	req.Len(list, 1)

	events, err := bus.GetAllEvents("AB3XQ9")
	req.NoError(err)
	req.Len(events, 1)
	req.Equal("poll_created", string(events[0].Type))
}

func Test_Create_Poll_Validation(t *testing.T) {
	req := require.New(t)
	feature, _, roomRepository := newTestFeature(t)
	req.NoError(roomRepository.Create("AB3XQ9"))

	_, err := feature.Create("AB3XQ9", CreateRequest{Question: "", Options: []string{"a", "b"}}, "Dana")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = feature.Create("AB3XQ9", CreateRequest{Question: "q", Options: []string{"only one"}}, "Dana")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = feature.Create("AB3XQ9", CreateRequest{Question: "q", Options: []string{"a", ""}}, "Dana")
	req.ErrorIs(err, errors.ErrValidation)
}

func Test_Vote(t *testing.T) {
	req := require.New(t)
	feature, bus, roomRepository := newTestFeature(t)
	req.NoError(roomRepository.Create("AB3XQ9"))

	poll, err := feature.Create("AB3XQ9", CreateRequest{
		Question: "Lunch?",
		Options:  []string{"Pizza", "Sushi"},
	}, "Dana")
	req.NoError(err)

	voted, err := feature.Vote("AB3XQ9", poll.ID, 0, "Sam")
	req.NoError(err)
	req.Equal(0, voted.Votes["Sam"])

	// Revoting replaces the previous ballot.
	voted, err = feature.Vote("AB3XQ9", poll.ID, 1, "Sam")
	req.NoError(err)
	req.Equal(1, voted.Votes["Sam"])
	req.Len(voted.Votes, 1)

	_, err = feature.Vote("AB3XQ9", poll.ID, 5, "Sam")
	req.ErrorIs(err, errors.ErrInvalidOption)
	_, err = feature.Vote("AB3XQ9", poll.ID, -1, "Sam")
	req.ErrorIs(err, errors.ErrInvalidOption)
	_, err = feature.Vote("AB3XQ9", "no-such-poll", 0, "Sam")
	req.ErrorIs(err, errors.ErrPollNotFound)

	events, err := bus.GetAllEvents("AB3XQ9")
	req.NoError(err)
	req.Len(events, 3) // poll_created + two vote_submitted

	// A failed vote must not have been recorded.
	list, err := feature.List("AB3XQ9")
	req.NoError(err)
	req.Len(list[0].Votes, 1)
}

func Test_Close_Poll(t *testing.T) {
	req := require.New(t)
	feature, _, roomRepository := newTestFeature(t)
	req.NoError(roomRepository.Create("AB3XQ9"))

	poll, err := feature.Create("AB3XQ9", CreateRequest{
		Question: "Lunch?",
		Options:  []string{"Pizza", "Sushi"},
	}, "Dana")
	req.NoError(err)

	closed, err := feature.Close("AB3XQ9", poll.ID, "Dana")
	req.NoError(err)
	req.False(closed.Active)

	_, err = feature.Vote("AB3XQ9", poll.ID, 0, "Sam")
	req.ErrorIs(err, errors.ErrPollClosed)

	_, err = feature.Close("AB3XQ9", "no-such-poll", "Dana")
	req.ErrorIs(err, errors.ErrPollNotFound)
}

func Test_Delete_Poll(t *testing.T) {
	req := require.New(t)
	feature, _, roomRepository := newTestFeature(t)
	req.NoError(roomRepository.Create("AB3XQ9"))

	poll, err := feature.Create("AB3XQ9", CreateRequest{
		Question: "Lunch?",
		Options:  []string{"Pizza", "Sushi"},
	}, "Dana")
	req.NoError(err)

	req.NoError(feature.Delete("AB3XQ9", poll.ID, "Dana"))

	list, err := feature.List("AB3XQ9")
	req.NoError(err)
	req.Empty(list)
}

func Test_Polls_On_Missing_Room(t *testing.T) {
	req := require.New(t)
	feature, _, _ := newTestFeature(t)

	_, err := feature.Create("ZZZZZZ", CreateRequest{Question: "q", Options: []string{"a", "b"}}, "Dana")
	req.ErrorIs(err, errors.ErrRoomNotFound)
	_, err = feature.Vote("ZZZZZZ", "p", 0, "Sam")
	req.ErrorIs(err, errors.ErrRoomNotFound)
	_, err = feature.List("ZZZZZZ")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}
