package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"workmatch/internal/domain"
	"workmatch/internal/events"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepo) SetAvailability(ctx context.Context, id int64, available bool) (*domain.User, error) {
	args := m.Called(ctx, id, available)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) SetNeededSpecialists(ctx context.Context, id int64, needed []domain.NeededSpecialist) (*domain.User, error) {
	args := m.Called(ctx, id, needed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) GetByPair(ctx context.Context, pair domain.Pair) (*domain.Conversation, error) {
	args := m.Called(ctx, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationSummary), args.Error(1)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepo) ListForConversation(ctx context.Context, conversationID, afterID int64, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) MarkRead(ctx context.Context, conversationID, userID int64, at time.Time) (int64, error) {
	args := m.Called(ctx, conversationID, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

type MockRelationshipRepo struct {
	mock.Mock
}

func (m *MockRelationshipRepo) Create(ctx context.Context, r *domain.Relationship) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRelationshipRepo) GetByOwnerAndCounterpart(ctx context.Context, ownerID, counterpartID int64) (*domain.Relationship, error) {
	args := m.Called(ctx, ownerID, counterpartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Relationship), args.Error(1)
}

func (m *MockRelationshipRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Relationship, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Relationship), args.Error(1)
}

func (m *MockRelationshipRepo) SetDone(ctx context.Context, id, ownerID int64, isDone bool) (*domain.Relationship, error) {
	args := m.Called(ctx, id, ownerID, isDone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Relationship), args.Error(1)
}

func (m *MockRelationshipRepo) Delete(ctx context.Context, id, ownerID int64) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev events.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}

func eventOfType(typ string) any {
	return mock.MatchedBy(func(ev events.Event) bool { return ev.Type == typ })
}
