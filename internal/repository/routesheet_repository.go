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

const routeSheetColumns = `id, name, file_path, file_type, uploaded_by, created_at`

// RouteSheetRepository manages route-sheet metadata rows. The binary itself
// lives in the storage collaborator; this table is authoritative for listing.
type RouteSheetRepository struct {
	db *sqlx.DB
}

// NewRouteSheetRepository constructs a new repository.
func NewRouteSheetRepository(db *sqlx.DB) *RouteSheetRepository {
	return &RouteSheetRepository{db: db}
}

// Create inserts document metadata after the binary was stored.
func (r *RouteSheetRepository) Create(ctx context.Context, sheet *models.RouteSheet) error {
	if sheet.ID == "" {
		sheet.ID = uuid.NewString()
	}
	if sheet.CreatedAt.IsZero() {
		sheet.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO route_sheets (id, name, file_path, file_type, uploaded_by, created_at)
VALUES (:id, :name, :file_path, :file_type, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sheet); err != nil {
		return fmt.Errorf("create route sheet: %w", err)
	}
	return nil
}

// List returns all documents, newest first.
func (r *RouteSheetRepository) List(ctx context.Context) ([]models.RouteSheet, error) {
	query := fmt.Sprintf("SELECT %s FROM route_sheets ORDER BY created_at DESC", routeSheetColumns)
	var sheets []models.RouteSheet
	if err := r.db.SelectContext(ctx, &sheets, query); err != nil {
		return nil, fmt.Errorf("list route sheets: %w", err)
	}
	return sheets, nil
}

// GetByID loads a single document's metadata.
func (r *RouteSheetRepository) GetByID(ctx context.Context, id string) (*models.RouteSheet, error) {
	query := fmt.Sprintf("SELECT %s FROM route_sheets WHERE id = $1", routeSheetColumns)
	var sheet models.RouteSheet
	if err := r.db.GetContext(ctx, &sheet, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get route sheet: %w", err)
	}
	return &sheet, nil
}

// Delete removes the metadata row.
func (r *RouteSheetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM route_sheets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete route sheet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete route sheet: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
