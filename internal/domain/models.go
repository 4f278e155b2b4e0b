package domain

import (
	"fmt"
	"time"
)

// Role distinguishes the two sides of the marketplace.
type Role string

const (
	RoleClient     Role = "client"
	RoleSpecialist Role = "specialist"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleSpecialist
}

// Opposite returns the role a user of role r keeps relationships with.
func (r Role) Opposite() Role {
	if r == RoleClient {
		return RoleSpecialist
	}
	return RoleClient
}

// NeededSpecialist is one entry of a client's wish list.
type NeededSpecialist struct {
	Name     string `json:"name"`
	IsNeeded bool   `json:"is_needed"`
}

// User is a directory entry. Identity is owned by an external provider;
// the directory only mirrors the profile fields this service needs.
type User struct {
	ID                int64              `db:"id" json:"id"`
	Role              Role               `db:"role" json:"role"`
	FullName          string             `db:"fullname" json:"fullname"`
	Governorate       string             `db:"governorate" json:"governorate"`
	District          string             `db:"district" json:"district"`
	Specialty         *string            `db:"specialty" json:"specialty,omitempty"`
	IsAvailable       bool               `db:"is_available" json:"is_available"`
	NeededSpecialists []NeededSpecialist `db:"needed_specialists" json:"needed_specialists,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
}

// Pair is an unordered pair of distinct user ids, stored low first.
type Pair [2]int64

// NewPair normalizes two user ids into a Pair. A user cannot pair with itself.
func NewPair(a, b int64) (Pair, error) {
	if a <= 0 || b <= 0 {
		return Pair{}, fmt.Errorf("participant ids must be positive: %w", ErrInvalidInput)
	}
	if a == b {
		return Pair{}, fmt.Errorf("cannot start a conversation with yourself: %w", ErrInvalidInput)
	}
	if a > b {
		a, b = b, a
	}
	return Pair{a, b}, nil
}

// Low returns the smaller id.
func (p Pair) Low() int64 { return p[0] }

// High returns the larger id.
func (p Pair) High() int64 { return p[1] }

// Contains reports whether id is one of the two participants.
func (p Pair) Contains(id int64) bool {
	return p[0] == id || p[1] == id
}

// Other returns the participant that is not id.
func (p Pair) Other(id int64) int64 {
	if p[0] == id {
		return p[1]
	}
	return p[0]
}

// Conversation is the single thread between two users.
type Conversation struct {
	ID             int64     `db:"id" json:"id"`
	ParticipantIDs Pair      `db:"participant_ids" json:"participant_ids"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// MessagePreview is the latest message shown in a conversation list.
type MessagePreview struct {
	ID        int64     `json:"id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationSummary is a conversation as seen by one of its participants.
type ConversationSummary struct {
	Conversation
	OtherParticipantID int64           `json:"other_participant_id"`
	LastMessage        *MessagePreview `json:"last_message"`
	Unread             bool            `json:"unread"`
}

// Message is a single chat message.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	Body           string    `db:"body" json:"body"` // encrypted at rest
	ClientID       *string   `db:"client_id" json:"client_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	ReadBy         []int64   `db:"-" json:"read_by"`
}

// IsReadBy reports whether userID is in the message's read set.
func (m *Message) IsReadBy(userID int64) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Relationship is a one-directional bookmark from owner to counterpart.
type Relationship struct {
	ID              int64     `db:"id" json:"id"`
	OwnerID         int64     `db:"owner_id" json:"owner_id"`
	CounterpartID   int64     `db:"counterpart_id" json:"counterpart_id"`
	CounterpartRole Role      `db:"counterpart_role" json:"counterpart_role"`
	IsDone          bool      `db:"is_done" json:"is_done"`
	DateAdded       time.Time `db:"date_added" json:"date_added"`
}
