package notes

import (
	"log/slog"
	"time"

	"github.com/samber/lo"

	"lanhub/domain"
	"lanhub/domain/event"
	"lanhub/eventbus"
	"lanhub/repositories"
)

// Notes is the shared scratchpad of a room: one text blob plus last-editor
// attribution. Last write wins, there is no merging of concurrent edits.
type Notes struct {
	Content   string `json:"content"`
	UpdatedBy string `json:"updatedBy,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

type Feature struct {
	rooms repositories.IRoomRepository
	bus   eventbus.IEventBus
	log   *slog.Logger
}

func NewFeature(rooms repositories.IRoomRepository, bus eventbus.IEventBus, log *slog.Logger) *Feature {
	return &Feature{rooms: rooms, bus: bus, log: log}
}

// Update replaces the room notes and broadcasts notes_updated. The aggregate
// state is written before the event is emitted, so pollers reacting to the
// event always see the new content.
func (f *Feature) Update(roomID, content, username string) (Notes, error) {
	now := time.Now().Unix()
	err := f.rooms.Update(roomID, domain.Update{
		Notes:          lo.ToPtr(content),
		NotesUpdatedBy: lo.ToPtr(username),
		NotesUpdatedAt: lo.ToPtr(now),
	})
	if err != nil {
		return Notes{}, err
	}

	if _, err := f.bus.Emit(roomID, event.TypeNotesUpdated, map[string]any{
		"content":   content,
		"updatedBy": username,
		"updatedAt": now,
	}); err != nil {
		return Notes{}, err
	}
	return Notes{Content: content, UpdatedBy: username, UpdatedAt: now}, nil
}

func (f *Feature) Get(roomID string) (Notes, error) {
	room, err := f.rooms.Get(roomID)
	if err != nil {
		return Notes{}, err
	}
	return Notes{
		Content:   room.Notes,
		UpdatedBy: room.NotesUpdatedBy,
		UpdatedAt: room.NotesUpdatedAt,
	}, nil
}

// Clear empties the notes and broadcasts notes_cleared.
func (f *Feature) Clear(roomID, username string) error {
	now := time.Now().Unix()
	err := f.rooms.Update(roomID, domain.Update{
		Notes:          lo.ToPtr(""),
		NotesUpdatedBy: lo.ToPtr(username),
		NotesUpdatedAt: lo.ToPtr(now),
	})
	if err != nil {
		return err
	}

	_, err = f.bus.Emit(roomID, event.TypeNotesCleared, map[string]any{
		"clearedBy": username,
	})
	return err
}
