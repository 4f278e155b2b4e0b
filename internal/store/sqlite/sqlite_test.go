package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workmatch/internal/domain"
	"workmatch/internal/store/sqlite"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	return db
}

func seedUsers(t *testing.T, db *sql.DB, ids ...int64) {
	t.Helper()
	repo := sqlite.NewUserRepo(db)
	for _, id := range ids {
		role := domain.RoleClient
		if id%2 == 0 {
			role = domain.RoleSpecialist
		}
		require.NoError(t, repo.Create(context.Background(), &domain.User{
			ID: id, Role: role, FullName: "user", IsAvailable: true, CreatedAt: base,
		}))
	}
}

func mustPair(t *testing.T, a, b int64) domain.Pair {
	t.Helper()
	p, err := domain.NewPair(a, b)
	require.NoError(t, err)
	return p
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite.NewUserRepo(db)

	specialty := "Plumber"
	u := &domain.User{
		ID: 10, Role: domain.RoleSpecialist, FullName: "Rami", Governorate: "Beirut",
		District: "Beirut", Specialty: &specialty, IsAvailable: true, CreatedAt: base,
	}
	require.NoError(t, repo.Create(ctx, u))

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleSpecialist, got.Role)
		require.NotNil(t, got.Specialty)
		assert.Equal(t, "Plumber", *got.Specialty)
		assert.True(t, got.CreatedAt.Equal(base))
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := repo.Create(ctx, &domain.User{ID: 10, Role: domain.RoleClient, FullName: "x", CreatedAt: base})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("needed specialists", func(t *testing.T) {
		c := &domain.User{
			ID: 11, Role: domain.RoleClient, FullName: "Nour", CreatedAt: base,
			NeededSpecialists: []domain.NeededSpecialist{{Name: "Tiler", IsNeeded: true}},
		}
		require.NoError(t, repo.Create(ctx, c))
		got, err := repo.GetByID(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, c.NeededSpecialists, got.NeededSpecialists)
	})

	t.Run("list by role", func(t *testing.T) {
		list, err := repo.List(ctx, domain.UserFilter{Role: domain.RoleSpecialist, Limit: 10})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(10), list[0].ID)
	})

	t.Run("list filters", func(t *testing.T) {
		no := false
		for name, tc := range map[string]struct {
			filter domain.UserFilter
			want   int
		}{
			"specialty ignores case": {domain.UserFilter{Role: domain.RoleSpecialist, Specialty: "plumber"}, 1},
			"other specialty":        {domain.UserFilter{Role: domain.RoleSpecialist, Specialty: "Tiler"}, 0},
			"district":               {domain.UserFilter{Governorate: "Beirut", District: "beirut"}, 1},
			"unavailable":            {domain.UserFilter{Role: domain.RoleSpecialist, Available: &no}, 0},
			"offset past end":        {domain.UserFilter{Role: domain.RoleSpecialist, Offset: 1, Limit: 10}, 0},
		} {
			t.Run(name, func(t *testing.T) {
				list, err := repo.List(ctx, tc.filter)
				require.NoError(t, err)
				assert.Len(t, list, tc.want)
			})
		}
	})

	t.Run("set availability", func(t *testing.T) {
		got, err := repo.SetAvailability(ctx, 10, false)
		require.NoError(t, err)
		assert.False(t, got.IsAvailable)
		assert.True(t, got.CreatedAt.Equal(base))

		_, err = repo.SetAvailability(ctx, 999, true)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("set needed specialists", func(t *testing.T) {
		needs := []domain.NeededSpecialist{{Name: "Painter", IsNeeded: true}, {Name: "Mason", IsNeeded: true}}
		got, err := repo.SetNeededSpecialists(ctx, 11, needs)
		require.NoError(t, err)
		assert.Equal(t, needs, got.NeededSpecialists)

		got, err = repo.SetNeededSpecialists(ctx, 11, nil)
		require.NoError(t, err)
		assert.Empty(t, got.NeededSpecialists)

		_, err = repo.SetNeededSpecialists(ctx, 999, needs)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestConversationRepo_UniquePair(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedUsers(t, db, 1, 2)
	repo := sqlite.NewConversationRepo(db)

	first := &domain.Conversation{ParticipantIDs: mustPair(t, 2, 1), CreatedAt: base, UpdatedAt: base}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotZero(t, first.ID)

	second := &domain.Conversation{ParticipantIDs: mustPair(t, 1, 2), CreatedAt: base, UpdatedAt: base}
	assert.ErrorIs(t, repo.Create(ctx, second), domain.ErrConflict)

	got, err := repo.GetByPair(ctx, mustPair(t, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, domain.Pair{1, 2}, got.ParticipantIDs)

	_, err = repo.GetByID(ctx, first.ID+100)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationRepo_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedUsers(t, db, 1, 2)
	repo := sqlite.NewConversationRepo(db)

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		conflict int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &domain.Conversation{ParticipantIDs: domain.Pair{1, 2}, CreatedAt: base, UpdatedAt: base}
			err := repo.Create(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, domain.ErrConflict):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflict)
}

func TestMessageRepo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedUsers(t, db, 1, 2)
	convs := sqlite.NewConversationRepo(db)
	msgs := sqlite.NewMessageRepo(db)

	conv := &domain.Conversation{ParticipantIDs: domain.Pair{1, 2}, CreatedAt: base, UpdatedAt: base}
	require.NoError(t, convs.Create(ctx, conv))

	m1 := &domain.Message{ConversationID: conv.ID, SenderID: 1, Body: "hi", CreatedAt: base.Add(time.Minute)}
	created, err := msgs.Create(ctx, m1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []int64{1}, m1.ReadBy)

	m2 := &domain.Message{ConversationID: conv.ID, SenderID: 2, Body: "hello", CreatedAt: base.Add(2 * time.Minute)}
	_, err = msgs.Create(ctx, m2)
	require.NoError(t, err)

	t.Run("append bumps updated_at", func(t *testing.T) {
		got, err := convs.GetByID(ctx, conv.ID)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.Equal(m2.CreatedAt))
	})

	t.Run("list is chronological", func(t *testing.T) {
		list, err := msgs.ListForConversation(ctx, conv.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, m1.ID, list[0].ID)
		assert.Equal(t, m2.ID, list[1].ID)
		assert.Equal(t, []int64{1}, list[0].ReadBy)
		assert.Equal(t, []int64{2}, list[1].ReadBy)
	})

	t.Run("after cursor", func(t *testing.T) {
		list, err := msgs.ListForConversation(ctx, conv.ID, m1.ID, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, m2.ID, list[0].ID)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		n, err := msgs.MarkRead(ctx, conv.ID, 1, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = msgs.MarkRead(ctx, conv.ID, 1, base.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		list, err := msgs.ListForConversation(ctx, conv.ID, 0, 0)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{1, 2}, list[1].ReadBy)
		assert.Equal(t, []int64{1}, list[0].ReadBy)
	})

	t.Run("client id replay", func(t *testing.T) {
		key := "3f1c2d9e-temp"
		first := &domain.Message{ConversationID: conv.ID, SenderID: 1, Body: "once", ClientID: &key, CreatedAt: base.Add(3 * time.Minute)}
		created, err := msgs.Create(ctx, first)
		require.NoError(t, err)
		assert.True(t, created)

		again := &domain.Message{ConversationID: conv.ID, SenderID: 1, Body: "once", ClientID: &key, CreatedAt: base.Add(4 * time.Minute)}
		created, err = msgs.Create(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.True(t, again.CreatedAt.Equal(first.CreatedAt))
	})
}

func TestMessageRepo_CursorFollowsStampOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedUsers(t, db, 1, 2)
	convs := sqlite.NewConversationRepo(db)
	msgs := sqlite.NewMessageRepo(db)

	conv := &domain.Conversation{ParticipantIDs: domain.Pair{1, 2}, CreatedAt: base, UpdatedAt: base}
	require.NoError(t, convs.Create(ctx, conv))

	// Inserted first but stamped later, as happens when two appends race.
	late := &domain.Message{ConversationID: conv.ID, SenderID: 1, Body: "late", CreatedAt: base.Add(2 * time.Millisecond)}
	_, err := msgs.Create(ctx, late)
	require.NoError(t, err)
	early := &domain.Message{ConversationID: conv.ID, SenderID: 2, Body: "early", CreatedAt: base.Add(time.Millisecond)}
	_, err = msgs.Create(ctx, early)
	require.NoError(t, err)
	require.Greater(t, early.ID, late.ID)

	var (
		seen  []int64
		after int64
	)
	for i := 0; i < 4; i++ {
		page, err := msgs.ListForConversation(ctx, conv.ID, after, 1)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		seen = append(seen, page[0].ID)
		assert.Equal(t, []int64{page[0].SenderID}, page[0].ReadBy)
		after = page[0].ID
	}
	assert.Equal(t, []int64{early.ID, late.ID}, seen)

	t.Run("foreign cursor", func(t *testing.T) {
		seedUsers(t, db, 4)
		other := &domain.Conversation{ParticipantIDs: domain.Pair{1, 4}, CreatedAt: base, UpdatedAt: base}
		require.NoError(t, convs.Create(ctx, other))
		_, err := msgs.Create(ctx, &domain.Message{ConversationID: other.ID, SenderID: 4, Body: "x", CreatedAt: base.Add(time.Hour)})
		require.NoError(t, err)
		page, err := msgs.ListForConversation(ctx, other.ID, late.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func TestConversationRepo_ListForUser(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedUsers(t, db, 1, 2, 4)
	convs := sqlite.NewConversationRepo(db)
	msgs := sqlite.NewMessageRepo(db)

	older := &domain.Conversation{ParticipantIDs: domain.Pair{1, 2}, CreatedAt: base, UpdatedAt: base}
	require.NoError(t, convs.Create(ctx, older))
	newer := &domain.Conversation{ParticipantIDs: domain.Pair{1, 4}, CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)}
	require.NoError(t, convs.Create(ctx, newer))

	t.Run("empty conversations order by creation", func(t *testing.T) {
		list, err := convs.ListForUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Nil(t, list[0].LastMessage)
		assert.False(t, list[0].Unread)
	})

	_, err := msgs.Create(ctx, &domain.Message{ConversationID: older.ID, SenderID: 2, Body: "ping", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	t.Run("activity moves conversation up", func(t *testing.T) {
		list, err := convs.ListForUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, older.ID, list[0].ID)
		assert.Equal(t, int64(2), list[0].OtherParticipantID)
		require.NotNil(t, list[0].LastMessage)
		assert.Equal(t, "ping", list[0].LastMessage.Body)
		assert.True(t, list[0].Unread)
	})

	t.Run("sender sees no unread", func(t *testing.T) {
		list, err := convs.ListForUser(ctx, 2)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.False(t, list[0].Unread)
		assert.Equal(t, int64(1), list[0].OtherParticipantID)
	})

	t.Run("read clears unread", func(t *testing.T) {
		_, err := msgs.MarkRead(ctx, older.ID, 1, base.Add(2*time.Hour))
		require.NoError(t, err)
		list, err := convs.ListForUser(ctx, 1)
		require.NoError(t, err)
		assert.False(t, list[0].Unread)
	})

	t.Run("outsider sees nothing", func(t *testing.T) {
		seedUsers(t, db, 7)
		list, err := convs.ListForUser(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestRelationshipRepo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedUsers(t, db, 1, 2, 3)
	repo := sqlite.NewRelationshipRepo(db)

	rel := &domain.Relationship{OwnerID: 1, CounterpartID: 2, CounterpartRole: domain.RoleSpecialist, DateAdded: base}
	require.NoError(t, repo.Create(ctx, rel))
	assert.NotZero(t, rel.ID)

	t.Run("duplicate", func(t *testing.T) {
		dup := &domain.Relationship{OwnerID: 1, CounterpartID: 2, CounterpartRole: domain.RoleSpecialist, DateAdded: base}
		assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrDuplicateRelationship)

		got, err := repo.GetByOwnerAndCounterpart(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, rel.ID, got.ID)
	})

	t.Run("reverse direction is independent", func(t *testing.T) {
		rev := &domain.Relationship{OwnerID: 2, CounterpartID: 1, CounterpartRole: domain.RoleClient, DateAdded: base}
		require.NoError(t, repo.Create(ctx, rev))
		list, err := repo.ListByOwner(ctx, 2)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(1), list[0].CounterpartID)
	})

	t.Run("set done", func(t *testing.T) {
		got, err := repo.SetDone(ctx, rel.ID, 1, true)
		require.NoError(t, err)
		assert.True(t, got.IsDone)
		assert.True(t, got.DateAdded.Equal(base))

		_, err = repo.SetDone(ctx, rel.ID, 3, true)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete owned only", func(t *testing.T) {
		assert.ErrorIs(t, repo.Delete(ctx, rel.ID, 3), domain.ErrNotFound)
		require.NoError(t, repo.Delete(ctx, rel.ID, 1))
		assert.ErrorIs(t, repo.Delete(ctx, rel.ID, 1), domain.ErrNotFound)

		list, err := repo.ListByOwner(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
