package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/transit-mediation/mediation-api/internal/models"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
)

type interventionRepository interface {
	Create(ctx context.Context, record *models.Intervention) error
	GetByID(ctx context.Context, id string) (*models.Intervention, error)
	ListForDay(ctx context.Context, operatorID string, date time.Time) ([]models.Intervention, error)
	Update(ctx context.Context, record *models.Intervention) error
	Delete(ctx context.Context, id string) error
	DeleteForDay(ctx context.Context, operatorID string, date time.Time) (int64, error)
}

type summaryCache interface {
	Delete(ctx context.Context, key string) error
}

// InterventionService handles the capture of intervention records. Every
// operation is scoped to the calling operator: records of other operators
// are invisible no matter their id.
type InterventionService struct {
	repo      interventionRepository
	cache     summaryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInterventionService constructs the service.
func NewInterventionService(repo interventionRepository, cache summaryCache, validate *validator.Validate, logger *zap.Logger) *InterventionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &InterventionService{repo: repo, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("transit_line", func(fl validator.FieldLevel) bool {
		return models.Line(fl.Field().String()).Valid()
	})
	return svc
}

// CreateInterventionRequest describes the create payload. Counters are not
// part of it: a fresh record always starts at zero everywhere.
type CreateInterventionRequest struct {
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	Line          string  `json:"line" validate:"required,transit_line"`
	CustomLine    *string `json:"custom_line"`
	VehicleNumber string  `json:"vehicle_number" validate:"required"`
	Stop          string  `json:"stop"`
}

// UpdateInterventionRequest describes the update payload. Absent fields
// keep their stored value; counters are replaced wholesale when provided.
type UpdateInterventionRequest struct {
	Time          *string                    `json:"time"`
	VehicleNumber *string                    `json:"vehicle_number"`
	Stop          *string                    `json:"stop"`
	Counts        *models.InterventionCounts `json:"counts"`
}

// Create registers a new intervention owned by the operator. Date defaults
// to today and time to now when omitted.
func (s *InterventionService) Create(ctx context.Context, operatorID string, req CreateInterventionRequest) (*models.Intervention, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	line := models.Line(req.Line)
	customLine := req.CustomLine
	if line.RequiresCustomLabel() {
		if customLine == nil || *customLine == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a custom line label is required for line Autres")
		}
	} else {
		customLine = nil
	}

	now := time.Now()
	date := now
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
		}
		date = parsed
	}
	date = truncateToDay(date)

	recordTime := req.Time
	if recordTime == "" {
		recordTime = now.Format("15:04")
	}

	record := &models.Intervention{
		UserID:        operatorID,
		Date:          date,
		Time:          recordTime,
		Line:          line,
		CustomLine:    customLine,
		VehicleNumber: req.VehicleNumber,
		Stop:          req.Stop,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create intervention")
	}

	s.invalidateSummary(ctx, operatorID, record.Date)
	return record, nil
}

// ListForDay returns the operator's records for the given date, newest
// first. Date defaults to today.
func (s *InterventionService) ListForDay(ctx context.Context, operatorID string, date string) ([]models.Intervention, error) {
	day, err := resolveDay(date)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListForDay(ctx, operatorID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list interventions")
	}
	if records == nil {
		records = []models.Intervention{}
	}
	return records, nil
}

// Update modifies a record the operator owns. Counters submitted with
// negative values are floored at zero.
func (s *InterventionService) Update(ctx context.Context, operatorID, id string, req UpdateInterventionRequest) (*models.Intervention, error) {
	record, err := s.ownedRecord(ctx, operatorID, id)
	if err != nil {
		return nil, err
	}

	if req.Time != nil {
		record.Time = *req.Time
	}
	if req.VehicleNumber != nil {
		if *req.VehicleNumber == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "vehicle number cannot be emptied")
		}
		record.VehicleNumber = *req.VehicleNumber
	}
	if req.Stop != nil {
		record.Stop = *req.Stop
	}
	if req.Counts != nil {
		counts := *req.Counts
		counts.Clamp()
		record.InterventionCounts = counts
	}

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intervention not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update intervention")
	}

	s.invalidateSummary(ctx, operatorID, record.Date)
	return record, nil
}

// AdjustCounter applies a single-counter delta, the tally-sheet gesture of
// the capture screen. The resulting value is floored at zero.
func (s *InterventionService) AdjustCounter(ctx context.Context, operatorID, id, counterKey string, delta int) (*models.Intervention, error) {
	record, err := s.ownedRecord(ctx, operatorID, id)
	if err != nil {
		return nil, err
	}

	if !applyCounterDelta(&record.InterventionCounts, counterKey, delta) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown counter %q", counterKey))
	}
	record.Clamp()

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intervention not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update counter")
	}

	s.invalidateSummary(ctx, operatorID, record.Date)
	return record, nil
}

// Delete removes a record the operator owns.
func (s *InterventionService) Delete(ctx context.Context, operatorID, id string) error {
	record, err := s.ownedRecord(ctx, operatorID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "intervention not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete intervention")
	}

	s.invalidateSummary(ctx, operatorID, record.Date)
	return nil
}

// ResetDay wipes every record of the operator's date and returns how many
// were removed. Resetting an empty day is not an error.
func (s *InterventionService) ResetDay(ctx context.Context, operatorID string, date string) (int64, error) {
	day, err := resolveDay(date)
	if err != nil {
		return 0, err
	}
	removed, err := s.repo.DeleteForDay(ctx, operatorID, day)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to reset the day")
	}
	s.invalidateSummary(ctx, operatorID, day)
	return removed, nil
}

func (s *InterventionService) ownedRecord(ctx context.Context, operatorID, id string) (*models.Intervention, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intervention not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load intervention")
	}
	if record.UserID != operatorID {
		// Hide other operators' records entirely.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "intervention not found")
	}
	return record, nil
}

func (s *InterventionService) invalidateSummary(ctx context.Context, operatorID string, date time.Time) {
	if s.cache == nil {
		return
	}
	key := SummaryCacheKey(operatorID, date)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.String("key", key), zap.Error(err))
	}
}

// SummaryCacheKey names the cached daily summary of one operator day.
func SummaryCacheKey(operatorID string, date time.Time) string {
	return fmt.Sprintf("summary:%s:%s", operatorID, date.Format("2006-01-02"))
}

func applyCounterDelta(counts *models.InterventionCounts, key string, delta int) bool {
	switch key {
	case "regulation":
		counts.Regulation += delta
	case "incivility":
		counts.Incivility += delta
	case "help":
		counts.Help += delta
	case "information":
		counts.Information += delta
	case "link":
		counts.Link += delta
	case "bike_scooter":
		counts.BikeScooter += delta
	case "stroller":
		counts.Stroller += delta
	case "physical_aggression":
		counts.PhysicalAggression += delta
	case "verbal_aggression":
		counts.VerbalAggression += delta
	case "other":
		counts.Other += delta
	default:
		return false
	}
	return true
}

func resolveDay(date string) (time.Time, error) {
	if date == "" {
		return truncateToDay(time.Now()), nil
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
	}
	return truncateToDay(parsed), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
