package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transit-mediation/mediation-api/internal/models"
)

func TestRouteSheetRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRouteSheetRepository(db)

	mock.ExpectExec("INSERT INTO route_sheets").
		WillReturnResult(sqlmock.NewResult(1, 1))

	sheet := &models.RouteSheet{
		Name:       "Ligne A matin",
		FilePath:   "ete/semaine/op-1_1719900000_a1b2c3.pdf",
		FileType:   "application/pdf",
		UploadedBy: "op-1",
	}
	require.NoError(t, repo.Create(context.Background(), sheet))
	assert.NotEmpty(t, sheet.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteSheetRepositoryListNewestFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRouteSheetRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "file_path", "file_type", "uploaded_by", "created_at"}).
		AddRow("s2", "VSD", "vsd/op-1_2_x.pdf", "application/pdf", "op-1", time.Now()).
		AddRow("s1", "Semaine", "semaine/op-1_1_y.png", "image/png", "op-1", time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM route_sheets ORDER BY created_at DESC").
		WillReturnRows(rows)

	sheets, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "s2", sheets[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteSheetRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRouteSheetRepository(db)

	mock.ExpectExec("DELETE FROM route_sheets WHERE id = \\$1").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
