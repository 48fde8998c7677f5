package polls

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"lanhub/domain"
	"lanhub/domain/event"
	"lanhub/errors"
	"lanhub/eventbus"
	"lanhub/repositories"
)

var validate = validator.New()

// CreateRequest carries the input for a new poll. A poll needs a question
// and at least two options, none of them blank.
type CreateRequest struct {
	Question string   `validate:"required"`
	Options  []string `validate:"required,min=2,dive,required"`
}

type Feature struct {
	rooms repositories.IRoomRepository
	bus   eventbus.IEventBus
	log   *slog.Logger
}

func NewFeature(rooms repositories.IRoomRepository, bus eventbus.IEventBus, log *slog.Logger) *Feature {
	return &Feature{rooms: rooms, bus: bus, log: log}
}

// Create validates the request, appends the poll to the room aggregate, and
// broadcasts poll_created with the full poll as payload.
func (f *Feature) Create(roomID string, req CreateRequest, username string) (domain.Poll, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Poll{}, fmt.Errorf("%w: poll needs a question and at least 2 options", errors.ErrValidation)
	}

	poll := domain.Poll{
		ID:        uuid.New().String(),
		Question:  req.Question,
		Options:   req.Options,
		Votes:     map[string]int{},
		CreatedBy: username,
		CreatedAt: time.Now().Unix(),
		Active:    true,
	}

	err := f.rooms.Mutate(roomID, func(room *domain.Room) error {
		room.Polls = append(room.Polls, poll)
		return nil
	})
	if err != nil {
		return domain.Poll{}, err
	}

	if _, err := f.bus.Emit(roomID, event.TypePollCreated, poll); err != nil {
		return domain.Poll{}, err
	}
	return poll, nil
}

// Vote records username's choice on an active poll. Voting again replaces
// the previous ballot.
func (f *Feature) Vote(roomID, pollID string, optionIndex int, username string) (domain.Poll, error) {
	var voted domain.Poll
	err := f.rooms.Mutate(roomID, func(room *domain.Room) error {
		_, i, found := lo.FindIndexOf(room.Polls, func(p domain.Poll) bool {
			return p.ID == pollID
		})
		if !found {
			return errors.ErrPollNotFound
		}
		poll := &room.Polls[i]
		if !poll.Active {
			return errors.ErrPollClosed
		}
		if optionIndex < 0 || optionIndex >= len(poll.Options) {
			return errors.ErrInvalidOption
		}
		if poll.Votes == nil {
			poll.Votes = map[string]int{}
		}
		poll.Votes[username] = optionIndex
		voted = *poll
		return nil
	})
	if err != nil {
		return domain.Poll{}, err
	}

	if _, err := f.bus.Emit(roomID, event.TypeVoteSubmitted, map[string]any{
		"pollId":      pollID,
		"username":    username,
		"optionIndex": optionIndex,
	}); err != nil {
		return domain.Poll{}, err
	}
	return voted, nil
}

// Close deactivates the poll; further votes are rejected.
func (f *Feature) Close(roomID, pollID, username string) (domain.Poll, error) {
	var closed domain.Poll
	err := f.rooms.Mutate(roomID, func(room *domain.Room) error {
		_, i, found := lo.FindIndexOf(room.Polls, func(p domain.Poll) bool {
			return p.ID == pollID
		})
		if !found {
			return errors.ErrPollNotFound
		}
		room.Polls[i].Active = false
		closed = room.Polls[i]
		return nil
	})
	if err != nil {
		return domain.Poll{}, err
	}

	if _, err := f.bus.Emit(roomID, event.TypePollClosed, map[string]any{
		"pollId":   pollID,
		"closedBy": username,
	}); err != nil {
		return domain.Poll{}, err
	}
	return closed, nil
}

// Delete removes the poll from the room. Deleting a poll that is already
// gone is a no-op apart from the broadcast.
func (f *Feature) Delete(roomID, pollID, username string) error {
	err := f.rooms.Mutate(roomID, func(room *domain.Room) error {
		room.Polls = lo.Filter(room.Polls, func(p domain.Poll, _ int) bool {
			return p.ID != pollID
		})
		return nil
	})
	if err != nil {
		return err
	}

	_, err = f.bus.Emit(roomID, event.TypePollDeleted, map[string]any{
		"pollId":    pollID,
		"deletedBy": username,
	})
	return err
}

func (f *Feature) List(roomID string) ([]domain.Poll, error) {
	room, err := f.rooms.Get(roomID)
	if err != nil {
		return nil, err
	}
	return room.Polls, nil
}
