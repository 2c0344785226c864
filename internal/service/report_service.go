package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/transit-mediation/mediation-api/internal/models"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
	"github.com/transit-mediation/mediation-api/pkg/export"
	"github.com/transit-mediation/mediation-api/pkg/storage"
)

// ReportFormat selects the rendering of a daily report.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatHTML ReportFormat = "html"
)

// Valid reports whether the format is supported.
func (f ReportFormat) Valid() bool {
	switch f {
	case ReportFormatCSV, ReportFormatPDF, ReportFormatHTML:
		return true
	default:
		return false
	}
}

type reportInterventionRepository interface {
	ListForDay(ctx context.Context, operatorID string, date time.Time) ([]models.Intervention, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type htmlRenderer interface {
	Render(report export.HTMLReport) ([]byte, error)
}

// ReportConfig tunes report generation.
type ReportConfig struct {
	APIPrefix string
	CacheTTL  time.Duration
	ResultTTL time.Duration
}

// ReportResult captures a rendered report stored on disk.
type ReportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       ReportFormat
	ExpiresAt    time.Time
}

// ReportService derives daily summaries and renders the end-of-day report
// an agent sends in. Summaries are always recomputed from the records so
// they cannot drift; the cache only shortcuts the recomputation.
type ReportService struct {
	repo    reportInterventionRepository
	cache   reportCache
	storage reportStorage
	signer  *storage.SignedURLSigner
	csv     csvRenderer
	pdf     pdfRenderer
	html    htmlRenderer
	logger  *zap.Logger
	cfg     ReportConfig
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportInterventionRepository, cache reportCache, fileStore reportStorage, signer *storage.SignedURLSigner, cfg ReportConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:    repo,
		cache:   cache,
		storage: fileStore,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		html:    export.NewHTMLExporter(),
		logger:  logger,
		cfg:     cfg,
	}
}

// Summarize folds a day's records into totals. It only reads its input, so
// the same records always produce the same summary.
func Summarize(operatorID string, date time.Time, records []models.Intervention) models.DailySummary {
	summary := models.DailySummary{
		Date:        date.Format("2006-01-02"),
		OperatorID:  operatorID,
		RecordCount: len(records),
		Details:     records,
	}
	if summary.Details == nil {
		summary.Details = []models.Intervention{}
	}
	for i := range records {
		summary.Totals.Add(records[i].InterventionCounts)
	}
	return summary
}

// DailySummary returns the operator's aggregated day, served from cache
// when a fresh copy exists.
func (s *ReportService) DailySummary(ctx context.Context, operatorID string, date string) (*models.DailySummary, error) {
	day, err := resolveDay(date)
	if err != nil {
		return nil, err
	}

	key := SummaryCacheKey(operatorID, day)
	if s.cache != nil {
		var cached models.DailySummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	records, err := s.repo.ListForDay(ctx, operatorID, day)
	if err != nil {
		return nil, appErrors.StoreError(err, "failed to load the day's records")
	}
	summary := Summarize(operatorID, day, records)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache daily summary", zap.String("key", key), zap.Error(err))
		}
	}
	return &summary, nil
}

// Export renders the operator's daily report and stores it behind a signed
// download token. An empty day still produces a report with zero totals.
func (s *ReportService) Export(ctx context.Context, operatorID string, date string, format ReportFormat) (*ReportResult, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	day, err := resolveDay(date)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListForDay(ctx, operatorID, day)
	if err != nil {
		return nil, appErrors.StoreError(err, "failed to load the day's records")
	}
	summary := Summarize(operatorID, day, records)

	var payload []byte
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(buildReportDataset(summary))
	case ReportFormatPDF:
		payload, err = s.pdf.Render(buildReportDataset(summary), reportTitle(summary))
	case ReportFormatHTML:
		payload, err = s.html.Render(buildHTMLReport(summary))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := fmt.Sprintf("rapport-mediation-%s.%s", summary.Date, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(operatorID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report URL")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ReportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a report download token.
func (s *ReportService) ParseToken(token string) (operatorID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, false)
}

// Open returns a handle to a stored report file.
func (s *ReportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes report files older than the retention TTL.
func (s *ReportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func reportTitle(summary models.DailySummary) string {
	return fmt.Sprintf("Rapport de médiation %s", summary.Date)
}

func buildReportDataset(summary models.DailySummary) export.Dataset {
	headers := []string{"Heure", "Ligne", "Véhicule", "Arrêt"}
	for _, incident := range models.IncidentTypes {
		headers = append(headers, incident.Label)
	}

	rows := make([]map[string]string, 0, len(summary.Details)+1)
	for _, record := range summary.Details {
		row := map[string]string{
			"Heure":    record.Time,
			"Ligne":    lineLabel(record),
			"Véhicule": record.VehicleNumber,
			"Arrêt":    record.Stop,
		}
		for i, value := range record.Values() {
			row[models.IncidentTypes[i].Label] = fmt.Sprintf("%d", value)
		}
		rows = append(rows, row)
	}

	totals := map[string]string{"Heure": "Total", "Ligne": "", "Véhicule": "", "Arrêt": ""}
	for i, value := range summary.Totals.Values() {
		totals[models.IncidentTypes[i].Label] = fmt.Sprintf("%d", value)
	}
	rows = append(rows, totals)

	return export.Dataset{Headers: headers, Rows: rows}
}

func buildHTMLReport(summary models.DailySummary) export.HTMLReport {
	summaryLines := []string{
		fmt.Sprintf("Interventions enregistrées : %d", summary.RecordCount),
		fmt.Sprintf("Incidents au total : %d", summary.Totals.Total()),
	}
	for i, value := range summary.Totals.Values() {
		if value > 0 {
			summaryLines = append(summaryLines, fmt.Sprintf("%s : %d", models.IncidentTypes[i].Label, value))
		}
	}

	sections := make([]export.HTMLSection, 0, len(summary.Details))
	for _, record := range summary.Details {
		var headers []string
		row := map[string]string{}
		for i, value := range record.Values() {
			if value > 0 {
				headers = append(headers, models.IncidentTypes[i].Label)
				row[models.IncidentTypes[i].Label] = fmt.Sprintf("%d", value)
			}
		}
		table := export.Dataset{}
		if len(headers) > 0 {
			table = export.Dataset{Headers: headers, Rows: []map[string]string{row}}
		}
		sections = append(sections, export.HTMLSection{
			Heading: fmt.Sprintf("Ligne %s — véhicule %s", lineLabel(record), record.VehicleNumber),
			Meta:    strings.TrimSuffix(fmt.Sprintf("%s · %s", record.Time, record.Stop), " · "),
			Accent:  string(record.Line),
			Table:   table,
		})
	}

	return export.HTMLReport{
		Title:    reportTitle(summary),
		Subtitle: fmt.Sprintf("Journée du %s", summary.Date),
		Summary:  summaryLines,
		Sections: sections,
		Footer:   "Généré par l'application de médiation transport",
	}
}

func lineLabel(record models.Intervention) string {
	if record.Line == models.LineOther && record.CustomLine != nil && *record.CustomLine != "" {
		return *record.CustomLine
	}
	return string(record.Line)
}
