package domain

import "time"

// ParticipantRole distinguishes the organizer from riders in a chat room.
type ParticipantRole string

const (
	ParticipantRoleOrganizer ParticipantRole = "organizer"
	ParticipantRoleRider     ParticipantRole = "rider"
)

// Contact is the contact-detail snapshot a participant shares with the room.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Participant is a member of a chat room.
type Participant struct {
	UserID   string
	Role     ParticipantRole
	Contact  Contact
	JoinedAt time.Time
}

// ChatRoom is the conversation scoped to a single ride. Route and schedule
// fields are copied from the ride so the room can be listed without a join.
type ChatRoom struct {
	ID           string
	RideID       string
	OrganizerID  string
	Origin       string
	Destination  string
	DepartureAt  time.Time
	Participants []Participant
	CreatedAt    time.Time
}

// HasMember reports whether userID participates in the room.
func (c *ChatRoom) HasMember(userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns participant user ids in join order.
func (c *ChatRoom) MemberIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
