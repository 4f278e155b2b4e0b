package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

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
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, sender_id, client_id) DO NOTHING
		RETURNING id
	`, m.ConversationID, m.SenderID, m.Body, m.ClientID, m.CreatedAt).Scan(&m.ID)
	if errors.Is(err, sql.ErrNoRows) && m.ClientID != nil {
		// Replayed client id: hand back what was stored the first time.
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
		INSERT INTO message_reads (message_id, user_id, read_at) VALUES (?, ?, ?)
	`, m.ID, m.SenderID, m.CreatedAt); err != nil {
		return false, fmt.Errorf("insert sender read: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
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
		WHERE conversation_id = ? AND sender_id = ? AND client_id = ?
	`, conversationID, senderID, clientID).Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.ClientID, &m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get message by client id: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT user_id FROM message_reads WHERE message_id = ? ORDER BY read_at, user_id
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
		SELECT id, conversation_id, sender_id, body, client_id, created_at
		FROM messages
		WHERE conversation_id = ?`
	args := []any{conversationID}
	if afterID > 0 {
		query += `
		  AND (created_at, id) > (SELECT created_at, id FROM messages WHERE id = ? AND conversation_id = ?)`
		args = append(args, afterID, conversationID)
	}
	query += `
		ORDER BY created_at ASC, id ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	var (
		out  []*domain.Message
		byID = make(map[int64]*domain.Message)
		ids  []any
	)
	for rows.Next() {
		m := &domain.Message{ReadBy: []int64{}}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.ClientID, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	// The pool holds one connection; release it before the next query.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	reads, err := r.db.QueryContext(ctx, `
		SELECT message_id, user_id
		FROM message_reads
		WHERE message_id IN (`+placeholders(len(ids))+`)
		ORDER BY message_id, read_at, user_id
	`, ids...)
	if err != nil {
		return nil, fmt.Errorf("list read sets: %w", err)
	}
	defer reads.Close()
	for reads.Next() {
		var msgID, uid int64
		if err := reads.Scan(&msgID, &uid); err != nil {
			return nil, fmt.Errorf("scan read set: %w", err)
		}
		if m, ok := byID[msgID]; ok {
			m.ReadBy = append(m.ReadBy, uid)
		}
	}
	return out, reads.Err()
}

func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, userID int64, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_reads (message_id, user_id, read_at)
		SELECT id, ?, ? FROM messages WHERE conversation_id = ?
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

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
