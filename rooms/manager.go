//go:generate go run go.uber.org/mock/mockgen -source=manager.go -destination=../mocks/mock_room_manager.go -package=mocks
package rooms

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"lanhub/domain"
	"lanhub/domain/event"
	"lanhub/errors"
	"lanhub/eventbus"
	"lanhub/repositories"
)

type IManager interface {
	CreateRoom(role domain.Role) (string, error)
	JoinRoom(roomID, username string, role domain.Role) (domain.Room, error)
	GetRoomInfo(roomID string) (domain.Room, error)
	DeleteRoom(roomID string) error
}

// maxCodeAttempts bounds collision retries during room code generation.
// With 32^6 possible codes, hitting it means the code space is close to
// saturation.
const maxCodeAttempts = 10

// Manager owns room creation, membership bookkeeping, and the room code
// generation policy. Room lifecycle is nonexistent -> active -> deleted,
// nothing else.
type Manager struct {
	rooms repositories.IRoomRepository
	bus   eventbus.IEventBus
	log   *slog.Logger
}

func NewManager(rooms repositories.IRoomRepository, bus eventbus.IEventBus, log *slog.Logger) *Manager {
	return &Manager{rooms: rooms, bus: bus, log: log}
}

// CreateRoom generates a fresh room code, creates the room together with its
// event log, and emits the initial room_created event.
func (m *Manager) CreateRoom(role domain.Role) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}

		err = m.rooms.Create(code)
		if stderrors.Is(err, errors.ErrRoomExists) {
			m.log.Warn("room code collision, retrying", "code", code, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := m.bus.Emit(code, event.TypeRoomCreated, map[string]any{
			"roomId": code,
			"role":   role,
		}); err != nil {
			// A room whose log lacks its seed event must not survive.
			if deleteErr := m.rooms.Delete(code); deleteErr != nil {
				m.log.Error("rolling back room after failed seed emit", "room", code, "error", deleteErr)
			}
			return "", err
		}

		m.log.Info("room created", "room", code, "role", role)
		return code, nil
	}
	return "", errors.ErrRoomIDExhausted
}

// JoinRoom adds username to the room if not already present and returns the
// room snapshot. The first teacher to join becomes the permanent creator.
// Rejoining with the same username is idempotent: no duplicate participant,
// no duplicate user_joined event.
func (m *Manager) JoinRoom(roomID, username string, role domain.Role) (domain.Room, error) {
	if roomID == "" || username == "" {
		return domain.Room{}, fmt.Errorf("%w: room id and username are required", errors.ErrValidation)
	}

	var snapshot domain.Room
	var joined bool
	err := m.rooms.Mutate(roomID, func(room *domain.Room) error {
		if role == domain.RoleTeacher && room.CreatedBy == "" {
			room.CreatedBy = username
		}
		if !room.HasParticipant(username) {
			room.Participants = append(room.Participants, domain.Participant{
				Username: username,
				Role:     role,
				JoinedAt: time.Now().Unix(),
			})
			joined = true
		}
		snapshot = *room
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}

	if joined {
		if _, err := m.bus.Emit(roomID, event.TypeUserJoined, map[string]any{
			"username": username,
			"role":     role,
		}); err != nil {
			return domain.Room{}, err
		}
		m.log.Info("participant joined", "room", roomID, "username", username, "role", role)
	}
	return snapshot, nil
}

// GetRoomInfo is a snapshot read with no side effects.
func (m *Manager) GetRoomInfo(roomID string) (domain.Room, error) {
	return m.rooms.Get(roomID)
}

// DeleteRoom tears the room down completely: aggregate record, event log,
// and stored file blobs.
func (m *Manager) DeleteRoom(roomID string) error {
	if err := m.rooms.Delete(roomID); err != nil {
		return err
	}
	m.log.Info("room deleted", "room", roomID)
	return nil
}
