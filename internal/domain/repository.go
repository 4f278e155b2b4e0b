package domain

import (
	"context"
	"time"
)

// UserFilter narrows a directory listing. Empty strings and a nil Available
// match every user; string fields compare without regard to case.
type UserFilter struct {
	Role        Role
	Specialty   string
	Governorate string
	District    string
	Available   *bool
	Offset      int
	Limit       int
}

// UserRepository defines persistence operations for the user directory.
type UserRepository interface {
	// Create stores u with its externally assigned id. ErrConflict if the id is taken.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	// List returns users matching f ordered by id.
	List(ctx context.Context, f UserFilter) ([]*User, error)
	// SetAvailability and SetNeededSpecialists return the updated user or ErrNotFound.
	SetAvailability(ctx context.Context, id int64, available bool) (*User, error)
	SetNeededSpecialists(ctx context.Context, id int64, needed []NeededSpecialist) (*User, error)
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// Create inserts c and fills its id. ErrConflict if the pair already has a conversation.
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	GetByPair(ctx context.Context, pair Pair) (*Conversation, error)
	// ListForUser returns summaries ordered by latest activity, newest first.
	ListForUser(ctx context.Context, userID int64) ([]*ConversationSummary, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create appends m, seeds its read set with the sender and bumps the
	// conversation's updated_at. When m carries a ClientID already used by the
	// same sender in the same conversation, m is overwritten with the stored
	// message and created is false.
	Create(ctx context.Context, m *Message) (created bool, err error)
	// ListForConversation returns messages ordered by (created_at, id) that sort
	// after message afterID, or the whole history when afterID is zero.
	ListForConversation(ctx context.Context, conversationID, afterID int64, limit int) ([]*Message, error)
	// MarkRead adds userID to the read set of every message in the
	// conversation and returns how many read marks were new.
	MarkRead(ctx context.Context, conversationID, userID int64, at time.Time) (int64, error)
}

// RelationshipRepository defines persistence operations for relationships.
type RelationshipRepository interface {
	// Create inserts r and fills its id. ErrDuplicateRelationship if the owner
	// already tracks the counterpart.
	Create(ctx context.Context, r *Relationship) error
	GetByOwnerAndCounterpart(ctx context.Context, ownerID, counterpartID int64) (*Relationship, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Relationship, error)
	// SetDone updates the flag on a relationship owned by ownerID. ErrNotFound otherwise.
	SetDone(ctx context.Context, id, ownerID int64, isDone bool) (*Relationship, error)
	// Delete removes a relationship owned by ownerID. ErrNotFound otherwise.
	Delete(ctx context.Context, id, ownerID int64) error
}
