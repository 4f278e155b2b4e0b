package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"workmatch/internal/domain"
	"workmatch/internal/events"
	"workmatch/internal/metrics"
)

// DefaultMaxMessageLength is the body limit in runes when none is configured.
const DefaultMaxMessageLength = 5000

const maxClientIDLength = 64

type MessageService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	cipher        Cipher
	notifier

	MaxMessageLength int
	Now              func() time.Time
}

func NewMessageService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	cipher Cipher,
	publisher events.Publisher,
	log *zap.Logger,
	maxLength int,
) *MessageService {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	return &MessageService{
		conversations:    conversations,
		messages:         messages,
		cipher:           cipher,
		notifier:         notifier{events: publisher, log: log},
		MaxMessageLength: maxLength,
		Now:              utcNow,
	}
}

type AppendInput struct {
	ConversationID int64
	SenderID       int64
	Body           string
	// ClientID is an optional sender-chosen key that makes retries idempotent.
	ClientID string
}

// Append stores a message from a participant. created is false when the
// ClientID was already used and the original message is returned instead.
func (s *MessageService) Append(ctx context.Context, in AppendInput) (msg *domain.Message, created bool, err error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, false, domain.ErrEmptyBody
	}
	if n := utf8.RuneCountInString(in.Body); n > s.MaxMessageLength {
		return nil, false, fmt.Errorf("message is %d characters, limit is %d: %w", n, s.MaxMessageLength, domain.ErrInvalidInput)
	}
	if len(in.ClientID) > maxClientIDLength {
		return nil, false, fmt.Errorf("client id exceeds %d bytes: %w", maxClientIDLength, domain.ErrInvalidInput)
	}
	if err := s.authorize(ctx, in.ConversationID, in.SenderID); err != nil {
		return nil, false, err
	}

	sealed, err := s.cipher.Encrypt(in.Body)
	if err != nil {
		return nil, false, fmt.Errorf("encrypt body: %w", err)
	}
	msg = &domain.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Body:           sealed,
		CreatedAt:      s.Now(),
	}
	if in.ClientID != "" {
		clientID := in.ClientID
		msg.ClientID = &clientID
	}

	created, err = s.messages.Create(ctx, msg)
	if err != nil {
		return nil, false, fmt.Errorf("store message: %w", err)
	}
	if err := s.open(msg); err != nil {
		return nil, false, err
	}
	if created {
		metrics.MessagesAppended.Inc()
		s.publish(ctx, events.Event{
			Type:       events.MessageAppended,
			ActorID:    msg.SenderID,
			Key:        conversationKey(msg.ConversationID),
			OccurredAt: msg.CreatedAt,
			Payload: map[string]int64{
				"conversation_id": msg.ConversationID,
				"message_id":      msg.ID,
			},
		})
	}
	return msg, created, nil
}

// List returns messages after the given id in chronological order. A zero
// afterID and limit return the whole history.
func (s *MessageService) List(
	ctx context.Context,
	conversationID, requesterID, afterID int64,
	limit int,
) ([]*domain.Message, error) {
	if afterID < 0 || limit < 0 {
		return nil, fmt.Errorf("after and limit must not be negative: %w", domain.ErrInvalidInput)
	}
	if err := s.authorize(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}
	list, err := s.messages.ListForConversation(ctx, conversationID, afterID, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		if err := s.open(m); err != nil {
			return nil, err
		}
	}
	if list == nil {
		list = []*domain.Message{}
	}
	return list, nil
}

// MarkRead adds the user to the read set of every message in the
// conversation and returns how many messages were newly marked.
func (s *MessageService) MarkRead(ctx context.Context, conversationID, userID int64) (int64, error) {
	if err := s.authorize(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	now := s.Now()
	n, err := s.messages.MarkRead(ctx, conversationID, userID, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.MessagesMarkedRead.Add(float64(n))
		s.publish(ctx, events.Event{
			Type:       events.ConversationRead,
			ActorID:    userID,
			Key:        conversationKey(conversationID),
			OccurredAt: now,
			Payload: map[string]int64{
				"conversation_id": conversationID,
				"marked":          n,
			},
		})
	}
	return n, nil
}

func (s *MessageService) authorize(ctx context.Context, conversationID, userID int64) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.ParticipantIDs.Contains(userID) {
		return domain.ErrForbidden
	}
	return nil
}

func (s *MessageService) open(m *domain.Message) error {
	plain, err := s.cipher.Decrypt(m.Body)
	if err != nil {
		return fmt.Errorf("decrypt message %d: %w", m.ID, err)
	}
	m.Body = plain
	return nil
}
