package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transit-mediation/mediation-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func interventionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "date", "time", "line", "custom_line", "vehicle_number", "stop",
		"regulation", "incivility", "help", "information", "link", "bike_scooter", "stroller",
		"physical_aggression", "verbal_aggression", "other", "created_at", "updated_at",
	})
}

func TestInterventionRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectExec("INSERT INTO interventions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.Intervention{
		UserID:        "op-1",
		Date:          time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Time:          "08:15",
		Line:          models.LineA,
		VehicleNumber: "1234",
		Stop:          "Jaude",
	}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryListForDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rows := interventionRows().
		AddRow("i2", "op-1", day, "09:30", "B", nil, "5678", "Gaillard",
			0, 2, 1, 0, 0, 0, 0, 0, 0, 0, time.Now(), time.Now()).
		AddRow("i1", "op-1", day, "08:15", "A", nil, "1234", "Jaude",
			0, 0, 0, 0, 0, 0, 0, 0, 0, 0, time.Now(), time.Now())
	mock.ExpectQuery("(?s)SELECT .+ FROM interventions\\s+WHERE user_id = \\$1 AND date = \\$2 ORDER BY created_at DESC").
		WithArgs("op-1", day).
		WillReturnRows(rows)

	records, err := repo.ListForDay(context.Background(), "op-1", day)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "i2", records[0].ID)
	assert.Equal(t, 2, records[0].Incivility)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectExec("UPDATE interventions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Intervention{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	mock.ExpectExec("DELETE FROM interventions WHERE id = \\$1").
		WithArgs("i1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "i1"))

	mock.ExpectExec("DELETE FROM interventions WHERE id = \\$1").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterventionRepositoryDeleteForDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterventionRepository(db)

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM interventions WHERE user_id = \\$1 AND date = \\$2").
		WithArgs("op-1", day).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.DeleteForDay(context.Background(), "op-1", day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
