// Package domain contains core concepts of the collaboration hub.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Participant is a room-scoped identity. Usernames are not globally unique
// and carry no authentication; a username appears at most once per room and
// is never removed once joined.
type Participant struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	JoinedAt int64  `json:"joinedAt"`
}
