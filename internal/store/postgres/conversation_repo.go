package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"workmatch/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (user_low_id, user_high_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT conversations_pair_key DO NOTHING
		RETURNING id
	`, c.ParticipantIDs.Low(), c.ParticipantIDs.High(), c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	return r.getOne(ctx, `
		SELECT id, user_low_id, user_high_id, created_at, updated_at
		FROM conversations WHERE id = $1
	`, id)
}

func (r *ConversationRepo) GetByPair(ctx context.Context, pair domain.Pair) (*domain.Conversation, error) {
	return r.getOne(ctx, `
		SELECT id, user_low_id, user_high_id, created_at, updated_at
		FROM conversations WHERE user_low_id = $1 AND user_high_id = $2
	`, pair.Low(), pair.High())
}

func (r *ConversationRepo) getOne(ctx context.Context, query string, args ...any) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.ParticipantIDs[0], &c.ParticipantIDs[1], &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.user_low_id, c.user_high_id, c.created_at, c.updated_at,
		       lm.id, lm.sender_id, lm.body, lm.created_at,
		       EXISTS (
		           SELECT 1 FROM messages m
		           WHERE m.conversation_id = c.id
		             AND NOT EXISTS (
		                 SELECT 1 FROM message_reads mr
		                 WHERE mr.message_id = m.id AND mr.user_id = $1
		             )
		       ) AS unread
		FROM conversations c
		LEFT JOIN LATERAL (
		    SELECT m2.id, m2.sender_id, m2.body, m2.created_at
		    FROM messages m2
		    WHERE m2.conversation_id = c.id
		    ORDER BY m2.created_at DESC, m2.id DESC
		    LIMIT 1
		) lm ON TRUE
		WHERE c.user_low_id = $1 OR c.user_high_id = $1
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []*domain.ConversationSummary
	for rows.Next() {
		var (
			sum      domain.ConversationSummary
			lastID   sql.NullInt64
			sender   sql.NullInt64
			body     sql.NullString
			lastTime sql.NullTime
		)
		c := &sum.Conversation
		if err := rows.Scan(&c.ID, &c.ParticipantIDs[0], &c.ParticipantIDs[1], &c.CreatedAt, &c.UpdatedAt,
			&lastID, &sender, &body, &lastTime, &sum.Unread); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		sum.OtherParticipantID = c.ParticipantIDs.Other(userID)
		if lastID.Valid {
			sum.LastMessage = &domain.MessagePreview{
				ID:        lastID.Int64,
				SenderID:  sender.Int64,
				Body:      body.String,
				CreatedAt: lastTime.Time,
			}
		}
		out = append(out, &sum)
	}
	return out, rows.Err()
}
