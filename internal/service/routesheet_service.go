package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/transit-mediation/mediation-api/internal/catpath"
	"github.com/transit-mediation/mediation-api/internal/models"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
)

type routeSheetRepository interface {
	Create(ctx context.Context, sheet *models.RouteSheet) error
	List(ctx context.Context) ([]models.RouteSheet, error)
	GetByID(ctx context.Context, id string) (*models.RouteSheet, error)
	Delete(ctx context.Context, id string) error
}

type sheetStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type sheetSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (resourceID, relPath string, expiresAt time.Time, err error)
}

// RouteSheetConfig bounds uploads into the document catalog.
type RouteSheetConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// RouteSheetService manages the categorized route-sheet catalog: binary
// files in storage, one metadata row per document, and signed download
// URLs for retrieval.
type RouteSheetService struct {
	repo      routeSheetRepository
	storage   sheetStorage
	signer    sheetSigner
	validator *validator.Validate
	logger    *zap.Logger
	config    RouteSheetConfig
}

// NewRouteSheetService constructs the service.
func NewRouteSheetService(repo routeSheetRepository, storage sheetStorage, signer sheetSigner, validate *validator.Validate, logger *zap.Logger, config RouteSheetConfig) *RouteSheetService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	if len(config.AllowedMIMEs) == 0 {
		config.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	return &RouteSheetService{repo: repo, storage: storage, signer: signer, validator: validate, logger: logger, config: config}
}

// UploadRouteSheetRequest describes one document upload. Size is the
// declared content length; the stream itself is measured during the copy,
// so an understated size cannot bypass the limit.
type UploadRouteSheetRequest struct {
	Name        string `validate:"required"`
	Category    string `validate:"required"`
	Subcategory string
	Filename    string `validate:"required"`
	ContentType string `validate:"required"`
	Size        int64
	File        io.Reader `validate:"required"`
}

// Upload stores the binary then records its metadata. If the metadata
// insert fails the stored binary is removed again, so the catalog never
// lists a document it cannot serve and storage holds no orphans.
func (s *RouteSheetService) Upload(ctx context.Context, uploaderID string, req UploadRouteSheetRequest) (*models.RouteSheet, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload")
	}
	if !s.mimeAllowed(req.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not accepted", req.ContentType))
	}
	if req.Size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d MB limit", s.config.MaxFileSizeBytes/(1024*1024)))
	}

	relPath, err := s.buildStoragePath(uploaderID, req)
	if err != nil {
		return nil, err
	}

	// Read at most one byte past the ceiling so an oversized stream is
	// detected instead of truncated.
	counted := &countingReader{r: io.LimitReader(req.File, s.config.MaxFileSizeBytes+1)}
	if _, err := s.storage.SaveStream(relPath, counted); err != nil {
		return nil, appErrors.StoreError(err, "failed to store the document")
	}
	if counted.n > s.config.MaxFileSizeBytes {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Warn("failed to remove oversized upload", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d MB limit", s.config.MaxFileSizeBytes/(1024*1024)))
	}

	sheet := &models.RouteSheet{
		Name:       req.Name,
		FilePath:   relPath,
		FileType:   req.ContentType,
		UploadedBy: uploaderID,
	}
	if err := s.repo.Create(ctx, sheet); err != nil {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.StoreError(err, "failed to record the document")
	}

	s.decorate(sheet)
	return sheet, nil
}

// List returns catalog entries, newest first, optionally filtered by
// category and subcategory. Filters are compared as encoded segments, so
// "ete", "Été" and "été" all select the same folder.
func (s *RouteSheetService) List(ctx context.Context, category, subcategory string) ([]models.RouteSheet, error) {
	sheets, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.StoreError(err, "failed to list documents")
	}

	wantCategory := catpath.Encode(category)
	wantSubcategory := catpath.Encode(subcategory)

	filtered := make([]models.RouteSheet, 0, len(sheets))
	for i := range sheets {
		s.decorate(&sheets[i])
		if wantCategory != "" && catpath.Encode(sheets[i].Category) != wantCategory {
			continue
		}
		if wantSubcategory != "" && catpath.Encode(sheets[i].Subcategory) != wantSubcategory {
			continue
		}
		filtered = append(filtered, sheets[i])
	}
	return filtered, nil
}

// Delete removes the binary best-effort, then the metadata row. A missing
// binary does not block the removal of its catalog entry.
func (s *RouteSheetService) Delete(ctx context.Context, id string) error {
	sheet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.StoreError(err, "failed to load document")
	}

	if err := s.storage.Delete(sheet.FilePath); err != nil {
		s.logger.Warn("failed to delete document binary", zap.String("path", sheet.FilePath), zap.Error(err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.StoreError(err, "failed to delete document")
	}
	return nil
}

// DownloadURL issues a time-bounded signed token for one document.
func (s *RouteSheetService) DownloadURL(ctx context.Context, id string) (string, time.Time, error) {
	sheet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return "", time.Time{}, appErrors.StoreError(err, "failed to load document")
	}

	token, expiresAt, err := s.signer.Generate(sheet.ID, sheet.FilePath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
	}
	return token, expiresAt, nil
}

// Download validates a signed token and opens the referenced binary.
func (s *RouteSheetService) Download(ctx context.Context, token string) (*models.RouteSheet, *os.File, error) {
	resourceID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	sheet, err := s.repo.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.StoreError(err, "failed to load document")
	}
	if sheet.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match the document")
	}

	file, err := s.storage.Open(sheet.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	s.decorate(sheet)
	return sheet, file, nil
}

// Categories lists the fixed catalog taxonomy.
func (s *RouteSheetService) Categories() ([]string, map[string][]string) {
	return models.RouteSheetCategories, models.RouteSheetSubcategories
}

func (s *RouteSheetService) decorate(sheet *models.RouteSheet) {
	categorySeg, subcategorySeg := catpath.SplitPath(sheet.FilePath)
	sheet.Category = catpath.Decode(categorySeg)
	sheet.Subcategory = catpath.Decode(subcategorySeg)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *RouteSheetService) mimeAllowed(contentType string) bool {
	for _, allowed := range s.config.AllowedMIMEs {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

func (s *RouteSheetService) buildStoragePath(uploaderID string, req UploadRouteSheetRequest) (string, error) {
	categorySeg := catpath.Encode(req.Category)
	if categorySeg == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "category resolves to an empty folder name")
	}
	segments := []string{categorySeg}
	if req.Subcategory != "" {
		subcategorySeg := catpath.Encode(req.Subcategory)
		if subcategorySeg == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "subcategory resolves to an empty folder name")
		}
		segments = append(segments, subcategorySeg)
	}

	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate file name")
	}
	ext := strings.ToLower(path.Ext(req.Filename))
	filename := fmt.Sprintf("%s_%d_%s%s", uploaderID, time.Now().Unix(), hex.EncodeToString(suffix), ext)
	segments = append(segments, filename)
	return strings.Join(segments, "/"), nil
}
