package postgres

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
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT relationships_owner_counterpart_key DO NOTHING
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
	return r.getOne(ctx, `
		SELECT `+relationshipColumns+`
		FROM relationships WHERE owner_id = $1 AND counterpart_id = $2
	`, ownerID, counterpartID)
}

func (r *RelationshipRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Relationship, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+relationshipColumns+`
		FROM relationships
		WHERE owner_id = $1
		ORDER BY date_added DESC, id DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	var out []*domain.Relationship
	for rows.Next() {
		rel := &domain.Relationship{}
		if err := rows.Scan(&rel.ID, &rel.OwnerID, &rel.CounterpartID, &rel.CounterpartRole, &rel.IsDone, &rel.DateAdded); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func (r *RelationshipRepo) SetDone(ctx context.Context, id, ownerID int64, isDone bool) (*domain.Relationship, error) {
	return r.getOne(ctx, `
		UPDATE relationships SET is_done = $1
		WHERE id = $2 AND owner_id = $3
		RETURNING `+relationshipColumns, isDone, id, ownerID)
}

func (r *RelationshipRepo) Delete(ctx context.Context, id, ownerID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = $1 AND owner_id = $2`, id, ownerID)
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

func (r *RelationshipRepo) getOne(ctx context.Context, query string, args ...any) (*domain.Relationship, error) {
	rel := &domain.Relationship{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&rel.ID, &rel.OwnerID, &rel.CounterpartID, &rel.CounterpartRole, &rel.IsDone, &rel.DateAdded,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query relationship: %w", err)
	}
	return rel, nil
}
