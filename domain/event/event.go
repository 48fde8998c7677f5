package event

import "encoding/json"

// Type tags an event. The set is open-ended: feature modules may emit their
// own tags, these constants only cover the events the hub itself produces.
type Type string

const (
	TypeRoomCreated   Type = "room_created"
	TypeUserJoined    Type = "user_joined"
	TypeFileUploaded  Type = "file_uploaded"
	TypeFileDeleted   Type = "file_deleted"
	TypeNotesUpdated  Type = "notes_updated"
	TypeNotesCleared  Type = "notes_cleared"
	TypePollCreated   Type = "poll_created"
	TypeVoteSubmitted Type = "vote_submitted"
	TypePollClosed    Type = "poll_closed"
	TypePollDeleted   Type = "poll_deleted"
)

// Event is one immutable entry in a room's append-only log. IDs start at 1
// and increase by exactly 1 per append within a room; they are independent
// across rooms. Timestamp is wall-clock Unix seconds.
type Event struct {
	ID        int64           `json:"id"`
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}
