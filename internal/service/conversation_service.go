package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"workmatch/internal/domain"
	"workmatch/internal/events"
	"workmatch/internal/metrics"
)

type ConversationService struct {
	conversations domain.ConversationRepository
	users         domain.UserRepository
	cipher        Cipher
	notifier

	Now func() time.Time
}

func NewConversationService(
	conversations domain.ConversationRepository,
	users domain.UserRepository,
	cipher Cipher,
	publisher events.Publisher,
	log *zap.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		users:         users,
		cipher:        cipher,
		notifier:      notifier{events: publisher, log: log},
		Now:           utcNow,
	}
}

// FindOrCreate returns the single conversation between requester and other,
// creating it on first contact. created reports whether this call inserted it.
func (s *ConversationService) FindOrCreate(
	ctx context.Context,
	requesterID, otherID int64,
) (conv *domain.Conversation, created bool, err error) {
	pair, err := domain.NewPair(requesterID, otherID)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, false, fmt.Errorf("look up participant %d: %w", otherID, err)
	}

	existing, err := s.conversations.GetByPair(ctx, pair)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("find conversation: %w", err)
	}

	now := s.Now()
	conv = &domain.Conversation{ParticipantIDs: pair, CreatedAt: now, UpdatedAt: now}
	err = s.conversations.Create(ctx, conv)
	switch {
	case err == nil:
		metrics.ConversationsCreated.Inc()
		s.publish(ctx, events.Event{
			Type:       events.ConversationCreated,
			ActorID:    requesterID,
			Key:        conversationKey(conv.ID),
			OccurredAt: now,
			Payload:    conv,
		})
		return conv, true, nil
	case errors.Is(err, domain.ErrConflict):
		// Another request created the pair between our lookup and insert.
		metrics.ConversationRaces.Inc()
		winner, err := s.conversations.GetByPair(ctx, pair)
		if err != nil {
			return nil, false, fmt.Errorf("re-read conversation after conflict: %w", errors.Join(domain.ErrConflict, err))
		}
		return winner, false, nil
	default:
		return nil, false, fmt.Errorf("create conversation: %w", err)
	}
}

// Get returns a conversation the requester participates in.
func (s *ConversationService) Get(ctx context.Context, conversationID, requesterID int64) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.ParticipantIDs.Contains(requesterID) {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}

// ListForUser returns the user's conversations, most recently active first,
// with decrypted previews of their latest message.
func (s *ConversationService) ListForUser(ctx context.Context, userID int64) ([]*domain.ConversationSummary, error) {
	list, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, sum := range list {
		if sum.LastMessage == nil {
			continue
		}
		plain, err := s.cipher.Decrypt(sum.LastMessage.Body)
		if err != nil {
			return nil, fmt.Errorf("decrypt message %d: %w", sum.LastMessage.ID, err)
		}
		sum.LastMessage.Body = plain
	}
	if list == nil {
		list = []*domain.ConversationSummary{}
	}
	return list, nil
}

func conversationKey(id int64) string {
	return "conversation:" + strconv.FormatInt(id, 10)
}
