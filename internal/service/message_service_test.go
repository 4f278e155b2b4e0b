package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"workmatch/internal/domain"
	"workmatch/internal/events"
	"workmatch/internal/service"
)

func TestAppend(t *testing.T) {
	ctx := context.Background()
	conv := &domain.Conversation{ID: 7, ParticipantIDs: domain.Pair{1, 2}}

	newSvc := func(t *testing.T) (*service.MessageService, *MockConversationRepo, *MockMessageRepo, *MockPublisher) {
		convs := new(MockConversationRepo)
		msgs := new(MockMessageRepo)
		pub := new(MockPublisher)
		svc := service.NewMessageService(convs, msgs, newEncryptor(t), pub, zap.NewNop(), 20)
		svc.Now = func() time.Time { return fixedNow }
		return svc, convs, msgs, pub
	}

	t.Run("EmptyAndWhitespaceBodies", func(t *testing.T) {
		svc, convs, msgs, _ := newSvc(t)
		for _, body := range []string{"", "  ", "\n\t"} {
			_, _, err := svc.Append(ctx, service.AppendInput{ConversationID: 7, SenderID: 1, Body: body})
			assert.ErrorIs(t, err, domain.ErrEmptyBody, "body %q", body)
		}
		convs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("TooLong", func(t *testing.T) {
		svc, _, _, _ := newSvc(t)
		_, _, err := svc.Append(ctx, service.AppendInput{ConversationID: 7, SenderID: 1, Body: strings.Repeat("é", 21)})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("LimitCountsRunes", func(t *testing.T) {
		svc, convs, msgs, pub := newSvc(t)
		convs.On("GetByID", mock.Anything, int64(7)).Return(conv, nil)
		msgs.On("Create", mock.Anything, mock.Anything).Return(true, nil)
		pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

		_, _, err := svc.Append(ctx, service.AppendInput{ConversationID: 7, SenderID: 1, Body: strings.Repeat("é", 20)})
		assert.NoError(t, err)
	})

	t.Run("UnknownConversation", func(t *testing.T) {
		svc, convs, _, _ := newSvc(t)
		convs.On("GetByID", mock.Anything, int64(8)).Return(nil, domain.ErrNotFound)
		_, _, err := svc.Append(ctx, service.AppendInput{ConversationID: 8, SenderID: 1, Body: "hi"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NonParticipant", func(t *testing.T) {
		svc, convs, msgs, _ := newSvc(t)
		convs.On("GetByID", mock.Anything, int64(7)).Return(conv, nil)
		_, _, err := svc.Append(ctx, service.AppendInput{ConversationID: 7, SenderID: 3, Body: "hi"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("StoresCiphertextReturnsPlaintext", func(t *testing.T) {
		svc, convs, msgs, pub := newSvc(t)
		convs.On("GetByID", mock.Anything, int64(7)).Return(conv, nil)
		var stored string
		msgs.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			m := args.Get(1).(*domain.Message)
			stored = m.Body
			m.ID = 42
			m.ReadBy = []int64{m.SenderID}
		}).Return(true, nil)
		pub.On("Publish", mock.Anything, eventOfType(events.MessageAppended)).Return(nil)

		msg, created, err := svc.Append(ctx, service.AppendInput{ConversationID: 7, SenderID: 2, Body: "on my way"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(42), msg.ID)
		assert.Equal(t, "on my way", msg.Body)
		assert.NotEqual(t, "on my way", stored)
		assert.Equal(t, []int64{2}, msg.ReadBy)
		assert.True(t, msg.CreatedAt.Equal(fixedNow))
		pub.AssertExpectations(t)
	})

	t.Run("ReplayedClientID", func(t *testing.T) {
		svc, convs, msgs, pub := newSvc(t)
		enc := newEncryptor(t)
		original, err := enc.Encrypt("first try")
		require.NoError(t, err)

		convs.On("GetByID", mock.Anything, int64(7)).Return(conv, nil)
		msgs.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.ClientID != nil && *m.ClientID == "tmp-1"
		})).Run(func(args mock.Arguments) {
			m := args.Get(1).(*domain.Message)
			m.ID = 40
			m.Body = original
		}).Return(false, nil)

		msg, created, err := svc.Append(ctx, service.AppendInput{ConversationID: 7, SenderID: 1, Body: "first try", ClientID: "tmp-1"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(40), msg.ID)
		assert.Equal(t, "first try", msg.Body)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("ClientIDTooLong", func(t *testing.T) {
		svc, _, _, _ := newSvc(t)
		_, _, err := svc.Append(ctx, service.AppendInput{ConversationID: 7, SenderID: 1, Body: "x", ClientID: strings.Repeat("k", 65)})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestListMessages(t *testing.T) {
	ctx := context.Background()
	enc := newEncryptor(t)
	convs := new(MockConversationRepo)
	msgs := new(MockMessageRepo)
	svc := service.NewMessageService(convs, msgs, enc, events.Nop{}, zap.NewNop(), 0)

	a, _ := enc.Encrypt("a")
	b, _ := enc.Encrypt("b")
	convs.On("GetByID", mock.Anything, int64(7)).Return(&domain.Conversation{ID: 7, ParticipantIDs: domain.Pair{1, 2}}, nil)
	msgs.On("ListForConversation", mock.Anything, int64(7), int64(0), 0).Return([]*domain.Message{
		{ID: 1, Body: a, ReadBy: []int64{1}},
		{ID: 2, Body: b, ReadBy: []int64{2}},
	}, nil)

	list, err := svc.List(ctx, 7, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Body)
	assert.Equal(t, "b", list[1].Body)

	_, err = svc.List(ctx, 7, 9, 0, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.List(ctx, 7, 1, -1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, service.DefaultMaxMessageLength, svc.MaxMessageLength)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	convs := new(MockConversationRepo)
	msgs := new(MockMessageRepo)
	pub := new(MockPublisher)
	svc := service.NewMessageService(convs, msgs, newEncryptor(t), pub, zap.NewNop(), 0)
	svc.Now = func() time.Time { return fixedNow }

	convs.On("GetByID", mock.Anything, int64(7)).Return(&domain.Conversation{ID: 7, ParticipantIDs: domain.Pair{1, 2}}, nil)
	msgs.On("MarkRead", mock.Anything, int64(7), int64(1), fixedNow).Return(int64(3), nil).Once()
	msgs.On("MarkRead", mock.Anything, int64(7), int64(1), fixedNow).Return(int64(0), nil).Once()
	pub.On("Publish", mock.Anything, eventOfType(events.ConversationRead)).Return(nil).Once()

	n, err := svc.MarkRead(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = svc.MarkRead(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = svc.MarkRead(ctx, 7, 5)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	pub.AssertExpectations(t)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}
