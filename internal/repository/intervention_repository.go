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

const interventionColumns = `id, user_id, date, time, line, custom_line, vehicle_number, stop,
regulation, incivility, help, information, link, bike_scooter, stroller,
physical_aggression, verbal_aggression, other, created_at, updated_at`

// InterventionRepository manages persistence for intervention records.
type InterventionRepository struct {
	db *sqlx.DB
}

// NewInterventionRepository constructs a new repository.
func NewInterventionRepository(db *sqlx.DB) *InterventionRepository {
	return &InterventionRepository{db: db}
}

// Create inserts a new intervention record, assigning its id.
func (r *InterventionRepository) Create(ctx context.Context, record *models.Intervention) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := `INSERT INTO interventions (id, user_id, date, time, line, custom_line, vehicle_number, stop,
regulation, incivility, help, information, link, bike_scooter, stroller,
physical_aggression, verbal_aggression, other, created_at, updated_at)
VALUES (:id, :user_id, :date, :time, :line, :custom_line, :vehicle_number, :stop,
:regulation, :incivility, :help, :information, :link, :bike_scooter, :stroller,
:physical_aggression, :verbal_aggression, :other, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create intervention: %w", err)
	}
	return nil
}

// GetByID loads a single record.
func (r *InterventionRepository) GetByID(ctx context.Context, id string) (*models.Intervention, error) {
	query := fmt.Sprintf("SELECT %s FROM interventions WHERE id = $1", interventionColumns)
	var record models.Intervention
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get intervention: %w", err)
	}
	return &record, nil
}

// ListForDay returns an operator's records for one calendar date, newest
// created first. The date is arbitrary; only the handler surface pins it
// to today.
func (r *InterventionRepository) ListForDay(ctx context.Context, operatorID string, date time.Time) ([]models.Intervention, error) {
	query := fmt.Sprintf(`SELECT %s FROM interventions
WHERE user_id = $1 AND date = $2 ORDER BY created_at DESC`, interventionColumns)
	var records []models.Intervention
	if err := r.db.SelectContext(ctx, &records, query, operatorID, date); err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	return records, nil
}

// Update replaces time/vehicle/stop and the full counter set of a record.
func (r *InterventionRepository) Update(ctx context.Context, record *models.Intervention) error {
	record.UpdatedAt = time.Now().UTC()
	query := `UPDATE interventions SET time = :time, vehicle_number = :vehicle_number, stop = :stop,
regulation = :regulation, incivility = :incivility, help = :help, information = :information,
link = :link, bike_scooter = :bike_scooter, stroller = :stroller,
physical_aggression = :physical_aggression, verbal_aggression = :verbal_aggression,
other = :other, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update intervention: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update intervention: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete permanently removes one record.
func (r *InterventionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM interventions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete intervention: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete intervention: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteForDay bulk-deletes every record of an operator's day and returns
// the number removed.
func (r *InterventionRepository) DeleteForDay(ctx context.Context, operatorID string, date time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM interventions WHERE user_id = $1 AND date = $2", operatorID, date)
	if err != nil {
		return 0, fmt.Errorf("reset interventions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset interventions: %w", err)
	}
	return affected, nil
}
