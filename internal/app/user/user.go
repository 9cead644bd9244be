/*
Package user defines the representation of a chat participant.
*/
package user

// Participant is the identity of one person in a stream chat room. It is
// derived from the room access token presented at join time.
type Participant struct {
	// ID is the opaque user identifier (registered user ID or guest ID).
	ID string `json:"id"`

	// Name is the display name shown in chat.
	Name string `json:"name"`

	// Moderator mirrors the moderator claim of the room token the
	// participant joined with.
	Moderator bool `json:"moderator"`
}
