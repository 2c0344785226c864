package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transit-mediation/mediation-api/internal/models"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
	"github.com/transit-mediation/mediation-api/pkg/storage"
)

type routeSheetRepoStub struct {
	sheets    map[string]*models.RouteSheet
	nextID    int
	createErr error
}

func newRouteSheetRepoStub() *routeSheetRepoStub {
	return &routeSheetRepoStub{sheets: map[string]*models.RouteSheet{}}
}

func (r *routeSheetRepoStub) Create(ctx context.Context, sheet *models.RouteSheet) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	if sheet.ID == "" {
		sheet.ID = fmt.Sprintf("sheet-%d", r.nextID)
	}
	sheet.CreatedAt = time.Now()
	copied := *sheet
	r.sheets[sheet.ID] = &copied
	return nil
}

func (r *routeSheetRepoStub) List(ctx context.Context) ([]models.RouteSheet, error) {
	out := make([]models.RouteSheet, 0, len(r.sheets))
	for _, sheet := range r.sheets {
		out = append(out, *sheet)
	}
	return out, nil
}

func (r *routeSheetRepoStub) GetByID(ctx context.Context, id string) (*models.RouteSheet, error) {
	sheet, ok := r.sheets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *sheet
	return &copied, nil
}

func (r *routeSheetRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.sheets[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.sheets, id)
	return nil
}

func newRouteSheetServiceForTest(t *testing.T) (*RouteSheetService, *routeSheetRepoStub, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newRouteSheetRepoStub()
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewRouteSheetService(repo, store, signer, nil, zap.NewNop(), RouteSheetConfig{})
	return svc, repo, store
}

func pdfUpload(name, category, subcategory string) UploadRouteSheetRequest {
	content := "%PDF-1.4 fake"
	return UploadRouteSheetRequest{
		Name:        name,
		Category:    category,
		Subcategory: subcategory,
		Filename:    "feuille.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		File:        strings.NewReader(content),
	}
}

func TestRouteSheetServiceUploadBuildsEncodedPath(t *testing.T) {
	svc, _, store := newRouteSheetServiceForTest(t)

	sheet, err := svc.Upload(context.Background(), "op-1", pdfUpload("Ligne A matin", "Été", "Semaine"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sheet.FilePath, "ete/semaine/op-1_"), sheet.FilePath)
	assert.True(t, strings.HasSuffix(sheet.FilePath, ".pdf"))
	assert.Equal(t, "Été", sheet.Category)
	assert.Equal(t, "Semaine", sheet.Subcategory)

	info, err := os.Stat(store.Path(sheet.FilePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRouteSheetServiceUploadRejectsMIME(t *testing.T) {
	svc, _, _ := newRouteSheetServiceForTest(t)

	req := pdfUpload("Feuille", "VSD", "")
	req.ContentType = "application/zip"
	_, err := svc.Upload(context.Background(), "op-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRouteSheetServiceUploadRejectsOversize(t *testing.T) {
	svc, _, _ := newRouteSheetServiceForTest(t)

	req := pdfUpload("Feuille", "VSD", "")
	req.Size = 6 * 1024 * 1024
	_, err := svc.Upload(context.Background(), "op-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRouteSheetServiceUploadRejectsUnderdeclaredStream(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newRouteSheetRepoStub()
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewRouteSheetService(repo, store, signer, nil, zap.NewNop(), RouteSheetConfig{MaxFileSizeBytes: 1024})

	// The declared size fits, the actual stream does not. The upload must
	// be rejected outright, never stored truncated.
	req := pdfUpload("Feuille", "VSD", "")
	req.Size = 100
	req.File = strings.NewReader(strings.Repeat("x", 10*1024))
	_, err = svc.Upload(context.Background(), "op-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	assert.Empty(t, repo.sheets)
	entries, err := os.ReadDir(store.Path("vsd"))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestRouteSheetServiceUploadRemovesOrphanOnMetadataFailure(t *testing.T) {
	svc, repo, store := newRouteSheetServiceForTest(t)
	repo.createErr = fmt.Errorf("connection reset")

	_, err := svc.Upload(context.Background(), "op-1", pdfUpload("Feuille", "Travaux", ""))
	require.Error(t, err)

	// The stored binary must not outlive the failed insert.
	entries, err := os.ReadDir(store.Path("travaux"))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestRouteSheetServiceListFiltersByDecodedCategory(t *testing.T) {
	svc, _, _ := newRouteSheetServiceForTest(t)

	_, err := svc.Upload(context.Background(), "op-1", pdfUpload("Été semaine", "Été", "Semaine"))
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), "op-1", pdfUpload("Week-end", "VSD", ""))
	require.NoError(t, err)

	all, err := svc.List(context.Background(), "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	summer, err := svc.List(context.Background(), "Été", "Semaine")
	require.NoError(t, err)
	require.Len(t, summer, 1)
	assert.Equal(t, "Été semaine", summer[0].Name)

	none, err := svc.List(context.Background(), "Semaine", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRouteSheetServiceListFilterMatchesEncodedSegments(t *testing.T) {
	svc, _, _ := newRouteSheetServiceForTest(t)

	_, err := svc.Upload(context.Background(), "op-1", pdfUpload("Été semaine", "Été", "Semaine"))
	require.NoError(t, err)

	// The filter compares encoded folder segments, so any spelling of the
	// label selects the same documents.
	for _, spelling := range []string{"Été", "été", "ete", "ETE"} {
		got, err := svc.List(context.Background(), spelling, "")
		require.NoError(t, err)
		assert.Len(t, got, 1, "spelling %q", spelling)
	}
}

func TestRouteSheetServiceCategories(t *testing.T) {
	svc, _, _ := newRouteSheetServiceForTest(t)

	categories, subcategories := svc.Categories()
	assert.Equal(t, []string{"Semaine", "VSD", "Été", "Travaux"}, categories)
	require.Len(t, subcategories, 1)
	assert.Equal(t, []string{"Semaine", "Vendredi", "Samedi", "Dimanche"}, subcategories["Été"])
}

func TestRouteSheetServiceDownloadRoundTrip(t *testing.T) {
	svc, _, _ := newRouteSheetServiceForTest(t)

	sheet, err := svc.Upload(context.Background(), "op-1", pdfUpload("Feuille", "VSD", ""))
	require.NoError(t, err)

	token, expiresAt, err := svc.DownloadURL(context.Background(), sheet.ID)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	got, file, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, sheet.ID, got.ID)

	_, _, err = svc.Download(context.Background(), token+"broken")
	require.Error(t, err)
}

func TestRouteSheetServiceDeleteRemovesBinaryAndMetadata(t *testing.T) {
	svc, repo, store := newRouteSheetServiceForTest(t)

	sheet, err := svc.Upload(context.Background(), "op-1", pdfUpload("Feuille", "VSD", ""))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), sheet.ID))
	assert.Empty(t, repo.sheets)
	_, err = os.Stat(store.Path(sheet.FilePath))
	assert.True(t, os.IsNotExist(err))

	err = svc.Delete(context.Background(), sheet.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
