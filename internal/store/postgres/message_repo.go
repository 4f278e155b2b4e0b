package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"workmatch/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body, client_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT messages_client_key DO NOTHING
		RETURNING id
	`, m.ConversationID, m.SenderID, m.Body, m.ClientID, m.CreatedAt).Scan(&m.ID)
	if errors.Is(err, sql.ErrNoRows) && m.ClientID != nil {
		existing, err := r.getByClientID(ctx, tx, m.ConversationID, m.SenderID, *m.ClientID)
		if err != nil {
			return false, err
		}
		*m = *existing
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO message_reads (message_id, user_id, read_at) VALUES ($1, $2, $3)
	`, m.ID, m.SenderID, m.CreatedAt); err != nil {
		return false, fmt.Errorf("insert sender read: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = $1 WHERE id = $2
	`, m.CreatedAt, m.ConversationID); err != nil {
		return false, fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit message: %w", err)
	}
	m.ReadBy = []int64{m.SenderID}
	return true, nil
}

func (r *MessageRepo) getByClientID(ctx context.Context, tx *sql.Tx, conversationID, senderID int64, clientID string) (*domain.Message, error) {
	m := &domain.Message{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, body, client_id, created_at
		FROM messages
		WHERE conversation_id = $1 AND sender_id = $2 AND client_id = $3
	`, conversationID, senderID, clientID).Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.ClientID, &m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get message by client id: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT user_id FROM message_reads WHERE message_id = $1 ORDER BY read_at, user_id
	`, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list read set: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan read set: %w", err)
		}
		m.ReadBy = append(m.ReadBy, uid)
	}
	return m, rows.Err()
}

// ListForConversation pages by (created_at, id). afterID names the last
// message already seen; an id outside the conversation yields an empty page.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID, afterID int64, limit int) ([]*domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.body, m.client_id, m.created_at,
		       COALESCE(
		           (SELECT array_agg(mr.user_id ORDER BY mr.read_at, mr.user_id)
		            FROM message_reads mr WHERE mr.message_id = m.id),
		           '{}'
		       )
		FROM messages m
		WHERE m.conversation_id = $1`
	args := []any{conversationID}
	if afterID > 0 {
		query += `
		  AND (m.created_at, m.id) > (SELECT c.created_at, c.id FROM messages c WHERE c.id = $2 AND c.conversation_id = $1)`
		args = append(args, afterID)
	}
	query += `
		ORDER BY m.created_at ASC, m.id ASC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	// database/sql cannot scan arrays on its own; pgtype.Map is not safe for
	// concurrent use, so each call gets its own.
	typeMap := pgtype.NewMap()
	var out []*domain.Message
	for rows.Next() {
		m := domain.Message{ReadBy: []int64{}}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.ClientID, &m.CreatedAt,
			typeMap.SQLScanner(&m.ReadBy)); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, userID int64, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT id, $1::bigint, $2::timestamptz FROM messages WHERE conversation_id = $3
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, userID, at, conversationID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark read rows: %w", err)
	}
	return n, nil
}
