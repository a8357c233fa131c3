package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
)

type letterReader interface {
	FindByNumber(ctx context.Context, admissionNumber string) (*models.AdmissionLetter, error)
	MarkUsedTx(ctx context.Context, tx *sqlx.Tx, admissionNumber string, usedAt time.Time) error
}

type admissionStore interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, admission *models.StudentAdmission) error
	FindByID(ctx context.Context, id string) (*models.StudentAdmission, error)
	FindByNumber(ctx context.Context, admissionNumber string) (*models.StudentAdmission, error)
	List(ctx context.Context, filter models.AdmissionFilter) ([]models.StudentAdmission, int, error)
	UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus, reviewedBy string, reviewedAt time.Time, note *string) (int64, error)
}

type statusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// AdmissionApproved notifies downstream consumers that an admission cleared
// review, typically to provision user accounts.
type AdmissionApproved func(ctx context.Context, admission *models.StudentAdmission)

// AdmissionService orchestrates the admission workflow: verification,
// registration (consuming the letter), status checks, and staff review.
type AdmissionService struct {
	letters    letterReader
	admissions admissionStore
	cache      statusCache
	onApproved AdmissionApproved
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAdmissionService constructs the service.
func NewAdmissionService(letters letterReader, admissions admissionStore, cache statusCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &AdmissionService{
		letters:    letters,
		admissions: admissions,
		cache:      cache,
		cacheTTL:   cacheTTL,
		validator:  validate,
		logger:     logger,
	}
}

// OnApproved registers the approval callback.
func (s *AdmissionService) OnApproved(fn AdmissionApproved) {
	s.onApproved = fn
}

// Verify confirms a pre-issued letter exists, matches the child's name, and
// is unused. All failure modes collapse into the same opaque error so callers
// cannot probe which admission numbers exist.
func (s *AdmissionService) Verify(ctx context.Context, req dto.VerifyAdmissionRequest) (*dto.VerifiedAdmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	letter, err := s.letters.FindByNumber(ctx, strings.TrimSpace(req.AdmissionNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVerificationFailed, verificationFailedMessage)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission letter")
	}
	if letter.IsUsed || !nameMatches(letter, req.ChildFirstName, req.ChildLastName) {
		return nil, appErrors.Clone(appErrors.ErrVerificationFailed, verificationFailedMessage)
	}

	return &dto.VerifiedAdmission{
		AdmissionNumber: letter.AdmissionNumber,
		ChildFirstName:  letter.ChildFirstName,
		ChildLastName:   letter.ChildLastName,
		GradeLevel:      letter.GradeLevel,
	}, nil
}

// Register consumes the letter and creates a pending admission in a single
// transaction. The is_used guard on the letter update makes a duplicate
// submission fail cleanly instead of creating a second admission.
func (s *AdmissionService) Register(ctx context.Context, req dto.RegisterAdmissionRequest) (*models.StudentAdmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	letter, err := s.letters.FindByNumber(ctx, strings.TrimSpace(req.AdmissionNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrVerificationFailed, verificationFailedMessage)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission letter")
	}
	if letter.IsUsed || !nameMatches(letter, req.StudentFirstName, req.StudentLastName) {
		return nil, appErrors.Clone(appErrors.ErrVerificationFailed, verificationFailedMessage)
	}

	now := time.Now().UTC()
	admission := &models.StudentAdmission{
		AdmissionNumber:  letter.AdmissionNumber,
		StudentFirstName: req.StudentFirstName,
		StudentLastName:  req.StudentLastName,
		DateOfBirth:      req.DateOfBirth,
		PlaceOfBirth:     req.PlaceOfBirth,
		Nationality:      req.Nationality,
		AddressStreet:    req.AddressStreet,
		AddressCity:      req.AddressCity,
		AddressPostal:    req.AddressPostal,
		AddressState:     req.AddressState,
		Parents:          models.GuardianList(req.Parents),
		Status:           models.AdmissionStatusPending,
		SubmittedAt:      now,
	}

	tx, err := s.admissions.BeginTx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.letters.MarkUsedTx(ctx, tx, letter.AdmissionNumber, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against a concurrent registration.
			return nil, appErrors.Clone(appErrors.ErrVerificationFailed, verificationFailedMessage)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume admission letter")
	}
	if err := s.admissions.CreateTx(ctx, tx, admission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admission")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit registration")
	}

	s.logger.Info("admission registered",
		zap.String("admission_number", admission.AdmissionNumber),
		zap.String("admission_id", admission.ID),
	)
	return admission, nil
}

// Status returns the review state for an admission number. Results are cached
// briefly; the cache is dropped when a reviewer decides.
func (s *AdmissionService) Status(ctx context.Context, admissionNumber string) (*dto.AdmissionStatusResponse, error) {
	admissionNumber = strings.TrimSpace(admissionNumber)
	if admissionNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admission number is required")
	}

	key := statusCacheKey(admissionNumber)
	if s.cache != nil {
		var cached dto.AdmissionStatusResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	admission, err := s.admissions.FindByNumber(ctx, admissionNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no admission found for this number")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}

	resp := &dto.AdmissionStatusResponse{
		AdmissionNumber:  admission.AdmissionNumber,
		Status:           admission.Status,
		StudentFirstName: admission.StudentFirstName,
		StudentLastName:  admission.StudentLastName,
		SubmittedAt:      admission.SubmittedAt,
		ReviewedAt:       admission.ReviewedAt,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache admission status", zap.Error(err))
		}
	}
	return resp, nil
}

// List returns admissions for the review screen with pagination metadata.
func (s *AdmissionService) List(ctx context.Context, query dto.AdmissionQuery) ([]models.StudentAdmission, *models.Pagination, error) {
	filter := models.AdmissionFilter{
		Status:   query.Status,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.Limit,
	}
	admissions, total, err := s.admissions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admissions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return admissions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single admission by identifier.
func (s *AdmissionService) Get(ctx context.Context, id string) (*models.StudentAdmission, error) {
	admission, err := s.admissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}
	return admission, nil
}

// Review applies a staff decision exactly once. PENDING is the only state a
// decision can leave; the repository's guarded update enforces monotonicity.
func (s *AdmissionService) Review(ctx context.Context, id string, req dto.ReviewAdmissionRequest, reviewerID string) (*models.StudentAdmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	admission, err := s.admissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}
	if admission.Status != models.AdmissionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyReviewed, "admission already reviewed")
	}

	now := time.Now().UTC()
	var note *string
	if req.Note != "" {
		note = &req.Note
	}
	rows, err := s.admissions.UpdateStatus(ctx, id, req.Status, reviewerID, now, note)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update admission")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrAlreadyReviewed, "admission already reviewed")
	}

	admission.Status = req.Status
	admission.ReviewedBy = &reviewerID
	admission.ReviewedAt = &now
	admission.Note = note

	if s.cache != nil {
		if err := s.cache.Delete(ctx, statusCacheKey(admission.AdmissionNumber)); err != nil {
			s.logger.Warn("failed to invalidate status cache", zap.Error(err))
		}
	}

	if req.Status == models.AdmissionStatusApproved && s.onApproved != nil {
		s.onApproved(ctx, admission)
	}

	s.logger.Info("admission reviewed",
		zap.String("admission_id", admission.ID),
		zap.String("status", string(req.Status)),
		zap.String("reviewed_by", reviewerID),
	)
	return admission, nil
}

const verificationFailedMessage = "admission letter not found, already used, or does not match the provided name"

func nameMatches(letter *models.AdmissionLetter, firstName, lastName string) bool {
	return strings.EqualFold(strings.TrimSpace(firstName), letter.ChildFirstName) &&
		strings.EqualFold(strings.TrimSpace(lastName), letter.ChildLastName)
}

func statusCacheKey(admissionNumber string) string {
	return fmt.Sprintf("admission:status:%s", admissionNumber)
}
