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

// RelationshipService tracks the counterparts a user has bookmarked.
type RelationshipService struct {
	relationships domain.RelationshipRepository
	users         domain.UserRepository
	notifier

	Now func() time.Time
}

func NewRelationshipService(
	relationships domain.RelationshipRepository,
	users domain.UserRepository,
	publisher events.Publisher,
	log *zap.Logger,
) *RelationshipService {
	return &RelationshipService{
		relationships: relationships,
		users:         users,
		notifier:      notifier{events: publisher, log: log},
		Now:           utcNow,
	}
}

// Add records that owner tracks counterpartID. If the owner already does,
// the existing record is returned with created set to false.
func (s *RelationshipService) Add(
	ctx context.Context,
	owner *domain.User,
	counterpartID int64,
) (rel *domain.Relationship, created bool, err error) {
	if counterpartID == owner.ID {
		return nil, false, fmt.Errorf("cannot track yourself: %w", domain.ErrInvalidInput)
	}
	counterpart, err := s.users.GetByID(ctx, counterpartID)
	if err != nil {
		return nil, false, fmt.Errorf("look up counterpart %d: %w", counterpartID, err)
	}
	if counterpart.Role != owner.Role.Opposite() {
		return nil, false, fmt.Errorf("a %s can only track a %s: %w", owner.Role, owner.Role.Opposite(), domain.ErrInvalidInput)
	}

	existing, err := s.relationships.GetByOwnerAndCounterpart(ctx, owner.ID, counterpartID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("find relationship: %w", err)
	}

	rel = &domain.Relationship{
		OwnerID:         owner.ID,
		CounterpartID:   counterpartID,
		CounterpartRole: counterpart.Role,
		DateAdded:       s.Now(),
	}
	err = s.relationships.Create(ctx, rel)
	if errors.Is(err, domain.ErrDuplicateRelationship) {
		existing, err := s.relationships.GetByOwnerAndCounterpart(ctx, owner.ID, counterpartID)
		if err != nil {
			return nil, false, fmt.Errorf("re-read relationship: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create relationship: %w", err)
	}

	metrics.RelationshipsAdded.Inc()
	s.publish(ctx, events.Event{
		Type:       events.RelationshipAdded,
		ActorID:    owner.ID,
		Key:        relationshipKey(owner.ID),
		OccurredAt: rel.DateAdded,
		Payload:    rel,
	})
	return rel, true, nil
}

func (s *RelationshipService) List(ctx context.Context, ownerID int64) ([]*domain.Relationship, error) {
	list, err := s.relationships.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Relationship{}
	}
	return list, nil
}

func (s *RelationshipService) SetDone(ctx context.Context, ownerID, relationshipID int64, isDone bool) (*domain.Relationship, error) {
	rel, err := s.relationships.SetDone(ctx, relationshipID, ownerID, isDone)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:       events.RelationshipUpdated,
		ActorID:    ownerID,
		Key:        relationshipKey(ownerID),
		OccurredAt: s.Now(),
		Payload:    rel,
	})
	return rel, nil
}

// Remove deletes a relationship owned by ownerID. Records owned by anyone
// else are reported as not found and left untouched.
func (s *RelationshipService) Remove(ctx context.Context, ownerID, relationshipID int64) error {
	if err := s.relationships.Delete(ctx, relationshipID, ownerID); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:       events.RelationshipRemoved,
		ActorID:    ownerID,
		Key:        relationshipKey(ownerID),
		OccurredAt: s.Now(),
		Payload:    map[string]int64{"relationship_id": relationshipID},
	})
	return nil
}

func relationshipKey(ownerID int64) string {
	return "owner:" + strconv.FormatInt(ownerID, 10)
}
