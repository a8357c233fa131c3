package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
	"github.com/noah-isme/sma-admission-api/pkg/export"
)

type letterRepository interface {
	List(ctx context.Context, filter models.LetterFilter) ([]models.AdmissionLetter, int, error)
	FindByNumber(ctx context.Context, admissionNumber string) (*models.AdmissionLetter, error)
	ExistsNumber(ctx context.Context, admissionNumber string) (bool, error)
	Create(ctx context.Context, letter *models.AdmissionLetter) error
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
}

type exportSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
}

// LetterService manages admission letter issuance and roster exports. It is
// the sole producer of admission numbers that verification accepts.
type LetterService struct {
	repo      letterRepository
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	storage   exportStorage
	signer    exportSigner
	maxBulk   int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLetterService constructs the service.
func NewLetterService(repo letterRepository, storage exportStorage, signer exportSigner, maxBulk int, validate *validator.Validate, logger *zap.Logger) *LetterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBulk <= 0 {
		maxBulk = 500
	}
	return &LetterService{
		repo:      repo,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		storage:   storage,
		signer:    signer,
		maxBulk:   maxBulk,
		validator: validate,
		logger:    logger,
	}
}

// List returns letters with pagination metadata.
func (s *LetterService) List(ctx context.Context, filter models.LetterFilter) ([]models.AdmissionLetter, *models.Pagination, error) {
	letters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list letters")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return letters, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create issues a single admission letter.
func (s *LetterService) Create(ctx context.Context, req dto.CreateLetterRequest, createdBy string) (*models.AdmissionLetter, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid letter payload")
	}
	number := strings.TrimSpace(req.AdmissionNumber)
	exists, err := s.repo.ExistsNumber(ctx, number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already issued")
	}

	letter := &models.AdmissionLetter{
		AdmissionNumber: number,
		ChildFirstName:  strings.TrimSpace(req.ChildFirstName),
		ChildLastName:   strings.TrimSpace(req.ChildLastName),
		GradeLevel:      req.GradeLevel,
		AcademicYear:    req.AcademicYear,
	}
	if createdBy != "" {
		letter.CreatedBy = &createdBy
	}
	if err := s.repo.Create(ctx, letter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create letter")
	}
	return letter, nil
}

// BulkCreate issues many letters, reporting per-row outcomes. Row failures
// do not abort the batch; duplicates inside the batch are caught as well.
func (s *LetterService) BulkCreate(ctx context.Context, req dto.BulkCreateLettersRequest, createdBy string) (*dto.BulkCreateLettersResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	if len(req.Letters) > s.maxBulk {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("bulk upload limited to %d letters", s.maxBulk))
	}

	result := &dto.BulkCreateLettersResult{Errors: []dto.BulkRowError{}}
	seen := make(map[string]bool, len(req.Letters))
	for i, row := range req.Letters {
		number := strings.TrimSpace(row.AdmissionNumber)
		if msg := validateLetterRow(row, number); msg != "" {
			result.Errors = append(result.Errors, dto.BulkRowError{Index: i, AdmissionNumber: number, Error: msg})
			continue
		}
		if seen[number] {
			result.Errors = append(result.Errors, dto.BulkRowError{Index: i, AdmissionNumber: number, Error: "duplicate admission number in upload"})
			continue
		}
		exists, err := s.repo.ExistsNumber(ctx, number)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate admission number")
		}
		if exists {
			result.Errors = append(result.Errors, dto.BulkRowError{Index: i, AdmissionNumber: number, Error: "admission number already issued"})
			continue
		}

		letter := &models.AdmissionLetter{
			AdmissionNumber: number,
			ChildFirstName:  strings.TrimSpace(row.ChildFirstName),
			ChildLastName:   strings.TrimSpace(row.ChildLastName),
			GradeLevel:      row.GradeLevel,
			AcademicYear:    row.AcademicYear,
		}
		if createdBy != "" {
			letter.CreatedBy = &createdBy
		}
		if err := s.repo.Create(ctx, letter); err != nil {
			result.Errors = append(result.Errors, dto.BulkRowError{Index: i, AdmissionNumber: number, Error: "failed to store letter"})
			s.logger.Warn("bulk letter insert failed", zap.String("admission_number", number), zap.Error(err))
			continue
		}
		seen[number] = true
		result.SuccessCount++
	}
	result.ErrorCount = len(result.Errors)
	return result, nil
}

// Export renders the letter roster as CSV or PDF, stores the file, and
// returns a signed download URL.
func (s *LetterService) Export(ctx context.Context, filter models.LetterFilter, format string) (*dto.LetterExportResult, error) {
	format = strings.ToLower(format)
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "exports are not configured")
	}

	filter.Page = 1
	filter.PageSize = 100
	var letters []models.AdmissionLetter
	for {
		batch, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load letters")
		}
		letters = append(letters, batch...)
		if len(letters) >= total || len(batch) == 0 {
			break
		}
		filter.Page++
	}

	dataset := letterDataset(letters)
	var payload []byte
	var err error
	if format == "csv" {
		payload, err = s.csv.Render(dataset)
	} else {
		payload, err = s.pdf.Render(dataset, "Admission Letters", fmt.Sprintf("%d letters", len(letters)))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("letters/%s.%s", exportID, format)
	if _, err := s.storage.Save(filename, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	return &dto.LetterExportResult{
		FileName:    filename,
		Format:      format,
		DownloadURL: "/api/v1/exports/download?token=" + token,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func validateLetterRow(row dto.LetterRow, number string) string {
	switch {
	case number == "":
		return "admission_number is required"
	case strings.TrimSpace(row.ChildFirstName) == "":
		return "child_first_name is required"
	case strings.TrimSpace(row.ChildLastName) == "":
		return "child_last_name is required"
	}
	return ""
}

func letterDataset(letters []models.AdmissionLetter) export.Dataset {
	headers := []string{"Admission Number", "Child Name", "Grade", "Academic Year", "Used"}
	rows := make([]map[string]string, 0, len(letters))
	for _, l := range letters {
		used := "no"
		if l.IsUsed {
			used = "yes"
		}
		rows = append(rows, map[string]string{
			"Admission Number": l.AdmissionNumber,
			"Child Name":       l.ChildFirstName + " " + l.ChildLastName,
			"Grade":            l.GradeLevel,
			"Academic Year":    l.AcademicYear,
			"Used":             used,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
