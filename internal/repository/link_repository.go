package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/transit-mediation/mediation-api/internal/models"
)

const linkColumns = `id, label, url, type, information, order_index, created_by, created_at, updated_at`

// LinkRepository manages persistence for the ordered useful-link list.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository constructs a new repository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// ListOrdered returns every link sorted by order index.
func (r *LinkRepository) ListOrdered(ctx context.Context) ([]models.UsefulLink, error) {
	query := fmt.Sprintf("SELECT %s FROM useful_links ORDER BY order_index ASC, created_at ASC", linkColumns)
	var links []models.UsefulLink
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// GetByID loads a single link.
func (r *LinkRepository) GetByID(ctx context.Context, id string) (*models.UsefulLink, error) {
	query := fmt.Sprintf("SELECT %s FROM useful_links WHERE id = $1", linkColumns)
	var link models.UsefulLink
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get link: %w", err)
	}
	return &link, nil
}

// Create inserts a new link at the tail of the current order. The order
// index is assigned in the statement itself so the tail position is
// computed by the database.
func (r *LinkRepository) Create(ctx context.Context, link *models.UsefulLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now
	query := `INSERT INTO useful_links (id, label, url, type, information, order_index, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, (SELECT COALESCE(MAX(order_index), 0) + 1 FROM useful_links), $6, $7, $8)
RETURNING order_index`
	if err := r.db.QueryRowxContext(ctx, query,
		link.ID, link.Label, link.URL, link.Type, link.Information,
		link.CreatedBy, link.CreatedAt, link.UpdatedAt,
	).Scan(&link.OrderIndex); err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// Update modifies label, target, note and re-derived type in place.
func (r *LinkRepository) Update(ctx context.Context, link *models.UsefulLink) error {
	link.UpdatedAt = time.Now().UTC()
	query := `UPDATE useful_links SET label = :label, url = :url, type = :type,
information = :information, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, link)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a link.
func (r *LinkRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM useful_links WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SwapOrderIndexes exchanges the order indices of two links inside a single
// transaction, so a failure of either update leaves the pre-call
// permutation intact.
func (r *LinkRepository) SwapOrderIndexes(ctx context.Context, firstID string, firstIndex int, secondID string, secondIndex int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin swap: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"UPDATE useful_links SET order_index = $1, updated_at = $2 WHERE id = $3",
		secondIndex, now, firstID); err != nil {
		return fmt.Errorf("swap first link: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE useful_links SET order_index = $1, updated_at = $2 WHERE id = $3",
		firstIndex, now, secondID); err != nil {
		return fmt.Errorf("swap second link: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit swap: %w", err)
	}
	return nil
}
