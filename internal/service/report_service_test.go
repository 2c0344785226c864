package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transit-mediation/mediation-api/internal/models"
	"github.com/transit-mediation/mediation-api/pkg/storage"
)

type reportRepoStub struct {
	records []models.Intervention
}

func (r *reportRepoStub) ListForDay(ctx context.Context, operatorID string, date time.Time) ([]models.Intervention, error) {
	return r.records, nil
}

type reportCacheStub struct {
	entries map[string]models.DailySummary
	hits    int
	sets    int
}

func newReportCacheStub() *reportCacheStub {
	return &reportCacheStub{entries: map[string]models.DailySummary{}}
}

func (c *reportCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	summary, ok := c.entries[key]
	if !ok {
		return os.ErrNotExist
	}
	c.hits++
	*dest.(*models.DailySummary) = summary
	return nil
}

func (c *reportCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	c.entries[key] = value.(models.DailySummary)
	return nil
}

func sampleDay() []models.Intervention {
	other := "Navette"
	return []models.Intervention{
		{
			ID: "i1", UserID: "op-1", Time: "08:15", Line: models.LineA,
			VehicleNumber: "1234", Stop: "Jaude",
			InterventionCounts: models.InterventionCounts{Regulation: 2, Help: 1},
		},
		{
			ID: "i2", UserID: "op-1", Time: "10:40", Line: models.LineOther, CustomLine: &other,
			VehicleNumber: "77",
			InterventionCounts: models.InterventionCounts{Incivility: 3, VerbalAggression: 1},
		},
	}
}

func newReportServiceForTest(t *testing.T, records []models.Intervention) (*ReportService, *reportCacheStub, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	cache := newReportCacheStub()
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewReportService(&reportRepoStub{records: records}, cache, store, signer, ReportConfig{APIPrefix: "/api/v1"}, zap.NewNop())
	return svc, cache, store
}

func TestSummarizeEmptyDay(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	summary := Summarize("op-1", day, nil)

	assert.Equal(t, "2025-06-02", summary.Date)
	assert.Zero(t, summary.RecordCount)
	assert.Zero(t, summary.Totals.Total())
	assert.NotNil(t, summary.Details)
}

func TestSummarizeTotals(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	records := sampleDay()
	summary := Summarize("op-1", day, records)

	assert.Equal(t, 2, summary.RecordCount)
	assert.Equal(t, 2, summary.Totals.Regulation)
	assert.Equal(t, 3, summary.Totals.Incivility)
	assert.Equal(t, 1, summary.Totals.VerbalAggression)
	assert.Equal(t, 7, summary.Totals.Total())

	// Summarize reads its input only.
	assert.Equal(t, 2, records[0].Regulation)
	again := Summarize("op-1", day, records)
	assert.Equal(t, summary.Totals, again.Totals)
}

func TestReportServiceDailySummaryUsesCache(t *testing.T) {
	svc, cache, _ := newReportServiceForTest(t, sampleDay())

	first, err := svc.DailySummary(context.Background(), "op-1", "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Zero(t, cache.hits)

	second, err := svc.DailySummary(context.Background(), "op-1", "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Totals, second.Totals)
}

func TestReportServiceExportFormats(t *testing.T) {
	svc, _, store := newReportServiceForTest(t, sampleDay())

	for _, format := range []ReportFormat{ReportFormatCSV, ReportFormatPDF, ReportFormatHTML} {
		result, err := svc.Export(context.Background(), "op-1", "2025-06-02", format)
		require.NoError(t, err, format)
		assert.Contains(t, result.RelativePath, "rapport-mediation-2025-06-02")
		assert.Contains(t, result.URL, "/api/v1/reports/download/")

		info, err := os.Stat(store.Path(result.RelativePath))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestReportServiceExportEmptyDay(t *testing.T) {
	svc, _, _ := newReportServiceForTest(t, nil)

	result, err := svc.Export(context.Background(), "op-1", "2025-06-02", ReportFormatHTML)
	require.NoError(t, err)

	operatorID, relPath, _, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", operatorID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestReportServiceExportRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newReportServiceForTest(t, nil)

	_, err := svc.Export(context.Background(), "op-1", "2025-06-02", ReportFormat("docx"))
	require.Error(t, err)
}
