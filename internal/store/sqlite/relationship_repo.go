package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"workmatch/internal/domain"
)

type RelationshipRepo struct {
	db *sql.DB
}

func NewRelationshipRepo(db *sql.DB) *RelationshipRepo {
	return &RelationshipRepo{db: db}
}

var _ domain.RelationshipRepository = (*RelationshipRepo)(nil)

const relationshipColumns = `id, owner_id, counterpart_id, counterpart_role, is_done, date_added`

func (r *RelationshipRepo) Create(ctx context.Context, rel *domain.Relationship) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO relationships (owner_id, counterpart_id, counterpart_role, is_done, date_added)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, counterpart_id) DO NOTHING
		RETURNING id
	`, rel.OwnerID, rel.CounterpartID, rel.CounterpartRole, rel.IsDone, rel.DateAdded).Scan(&rel.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrDuplicateRelationship
	}
	if err != nil {
		return fmt.Errorf("insert relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepo) GetByOwnerAndCounterpart(ctx context.Context, ownerID, counterpartID int64) (*domain.Relationship, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+relationshipColumns+`
		FROM relationships WHERE owner_id = ? AND counterpart_id = ?
	`, ownerID, counterpartID)
	rel, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	return rel, nil
}

func (r *RelationshipRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Relationship, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+relationshipColumns+`
		FROM relationships
		WHERE owner_id = ?
		ORDER BY date_added DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	var out []*domain.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func (r *RelationshipRepo) SetDone(ctx context.Context, id, ownerID int64, isDone bool) (*domain.Relationship, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE relationships SET is_done = ? WHERE id = ? AND owner_id = ?
	`, isDone, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update relationship: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update relationship rows: %w", err)
	} else if n == 0 {
		return nil, domain.ErrNotFound
	}

	// RETURNING drops column types in SQLite, so re-read for the timestamp.
	row := r.db.QueryRowContext(ctx, `SELECT `+relationshipColumns+` FROM relationships WHERE id = ?`, id)
	rel, err := scanRelationship(row)
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	return rel, nil
}

func (r *RelationshipRepo) Delete(ctx context.Context, id, ownerID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete relationship rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanRelationship(s rowScanner) (*domain.Relationship, error) {
	rel := &domain.Relationship{}
	if err := s.Scan(&rel.ID, &rel.OwnerID, &rel.CounterpartID, &rel.CounterpartRole, &rel.IsDone, &rel.DateAdded); err != nil {
		return nil, err
	}
	return rel, nil
}
