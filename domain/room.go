package domain

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Room is the aggregate record for one collaboration session. The identifier
// is a 6-character code, immutable once assigned. Feature-owned fields
// (notes, files, polls) are mutated through the room repository's
// read-merge-write update; the event log is kept separately.
type Room struct {
	ID             string        `json:"roomId"`
	Created        int64         `json:"created"`
	CreatedBy      string        `json:"createdBy,omitempty"`
	Participants   []Participant `json:"participants"`
	Notes          string        `json:"notes"`
	NotesUpdatedBy string        `json:"notesUpdatedBy,omitempty"`
	NotesUpdatedAt int64         `json:"notesUpdatedAt,omitempty"`
	Files          []FileRecord  `json:"files"`
	Polls          []Poll        `json:"polls"`
}

// HasParticipant reports whether username already joined. Comparison is
// case-sensitive.
func (r *Room) HasParticipant(username string) bool {
	for _, p := range r.Participants {
		if p.Username == username {
			return true
		}
	}
	return false
}

// Update is a partial room mutation: nil fields are left untouched.
type Update struct {
	CreatedBy      *string
	Participants   *[]Participant
	Notes          *string
	NotesUpdatedBy *string
	NotesUpdatedAt *int64
	Files          *[]FileRecord
	Polls          *[]Poll
}

// Apply merges the non-nil fields of the update into the room.
func (u Update) Apply(r *Room) {
	if u.CreatedBy != nil {
		r.CreatedBy = *u.CreatedBy
	}
	if u.Participants != nil {
		r.Participants = *u.Participants
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
	if u.NotesUpdatedBy != nil {
		r.NotesUpdatedBy = *u.NotesUpdatedBy
	}
	if u.NotesUpdatedAt != nil {
		r.NotesUpdatedAt = *u.NotesUpdatedAt
	}
	if u.Files != nil {
		r.Files = *u.Files
	}
	if u.Polls != nil {
		r.Polls = *u.Polls
	}
}

type FileRecord struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	StoredName   string `json:"storedName"`
	Size         int64  `json:"size"`
	ContentType  string `json:"type,omitempty"`
	UploadedBy   string `json:"uploadedBy"`
	UploadedAt   int64  `json:"uploadedAt"`
}

// Poll votes map usernames to an option index, so a participant revoting
// replaces their previous ballot instead of casting a second one.
type Poll struct {
	ID        string         `json:"id"`
	Question  string         `json:"question"`
	Options   []string       `json:"options"`
	Votes     map[string]int `json:"votes"`
	CreatedBy string         `json:"createdBy"`
	CreatedAt int64          `json:"createdAt"`
	Active    bool           `json:"active"`
}
