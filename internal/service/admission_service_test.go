package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
)

type mockLetterReader struct {
	letter      *models.AdmissionLetter
	findErr     error
	markUsedErr error
	markedUsed  []string
}

func (m *mockLetterReader) FindByNumber(_ context.Context, _ string) (*models.AdmissionLetter, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.letter, nil
}

func (m *mockLetterReader) MarkUsedTx(_ context.Context, _ *sqlx.Tx, admissionNumber string, _ time.Time) error {
	if m.markUsedErr != nil {
		return m.markUsedErr
	}
	m.markedUsed = append(m.markedUsed, admissionNumber)
	return nil
}

type mockAdmissionStore struct {
	db *sqlx.DB

	created      *models.StudentAdmission
	createErr    error
	byID         *models.StudentAdmission
	byIDErr      error
	byNumber     *models.StudentAdmission
	byNumberErr  error
	listResult   []models.StudentAdmission
	listTotal    int
	listErr      error
	updateRows   int64
	updateErr    error
	updateCalled bool
}

func (m *mockAdmissionStore) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, nil)
}

func (m *mockAdmissionStore) CreateTx(_ context.Context, _ *sqlx.Tx, admission *models.StudentAdmission) error {
	if m.createErr != nil {
		return m.createErr
	}
	admission.ID = "adm-1"
	m.created = admission
	return nil
}

func (m *mockAdmissionStore) FindByID(_ context.Context, _ string) (*models.StudentAdmission, error) {
	if m.byIDErr != nil {
		return nil, m.byIDErr
	}
	return m.byID, nil
}

func (m *mockAdmissionStore) FindByNumber(_ context.Context, _ string) (*models.StudentAdmission, error) {
	if m.byNumberErr != nil {
		return nil, m.byNumberErr
	}
	return m.byNumber, nil
}

func (m *mockAdmissionStore) List(_ context.Context, _ models.AdmissionFilter) ([]models.StudentAdmission, int, error) {
	return m.listResult, m.listTotal, m.listErr
}

func (m *mockAdmissionStore) UpdateStatus(_ context.Context, _ string, _ models.AdmissionStatus, _ string, _ time.Time, _ *string) (int64, error) {
	m.updateCalled = true
	return m.updateRows, m.updateErr
}

type mockStatusCache struct {
	values  map[string]interface{}
	getErr  error
	deleted []string
}

func newMockStatusCache() *mockStatusCache {
	return &mockStatusCache{values: map[string]interface{}{}, getErr: appErrors.ErrCacheMiss}
}

func (m *mockStatusCache) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	if v, ok := m.values[key]; ok {
		if resp, ok := v.(*dto.AdmissionStatusResponse); ok {
			*dest.(*dto.AdmissionStatusResponse) = *resp
			return nil
		}
	}
	return appErrors.ErrCacheMiss
}

func (m *mockStatusCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *mockStatusCache) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.values, key)
	return nil
}

func testLetter() *models.AdmissionLetter {
	return &models.AdmissionLetter{
		ID:              "l1",
		AdmissionNumber: "G1-2025-001",
		ChildFirstName:  "John",
		ChildLastName:   "Doe",
		GradeLevel:      "Grade 1",
		AcademicYear:    "2025/2026",
	}
}

func registerRequestFixture() dto.RegisterAdmissionRequest {
	return dto.RegisterAdmissionRequest{
		AdmissionNumber:  "G1-2025-001",
		StudentFirstName: "John",
		StudentLastName:  "Doe",
		DateOfBirth:      "2018-04-12",
		PlaceOfBirth:     "Jakarta",
		Nationality:      "Indonesian",
		AddressStreet:    "Jl. Merdeka 1",
		AddressCity:      "Jakarta",
		AddressPostal:    "10110",
		AddressState:     "DKI Jakarta",
		Parents: []models.Guardian{{
			FirstName:        "Jane",
			LastName:         "Doe",
			Email:            "jane.doe@example.com",
			Mobile:           "+628111111111",
			RelationType:     models.RelationMother,
			IsPrimaryContact: true,
		}},
	}
}

func newAdmissionTestService(t *testing.T, letters *mockLetterReader, store *mockAdmissionStore, cache *mockStatusCache) (*AdmissionService, sqlmock.Sqlmock, func()) {
	t.Helper()
	rawDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	store.db = sqlx.NewDb(rawDB, "sqlmock")
	svc := NewAdmissionService(letters, store, cache, time.Minute, nil, nil)
	return svc, mock, func() { rawDB.Close() }
}

func TestAdmissionServiceVerifySuccess(t *testing.T) {
	letters := &mockLetterReader{letter: testLetter()}
	svc, _, cleanup := newAdmissionTestService(t, letters, &mockAdmissionStore{}, newMockStatusCache())
	defer cleanup()

	verified, err := svc.Verify(context.Background(), dto.VerifyAdmissionRequest{
		AdmissionNumber: "G1-2025-001",
		ChildFirstName:  "john",
		ChildLastName:   " doe ",
	})
	require.NoError(t, err)
	assert.Equal(t, "G1-2025-001", verified.AdmissionNumber)
	assert.Equal(t, "Grade 1", verified.GradeLevel)
}

func TestAdmissionServiceVerifyFailuresAreOpaque(t *testing.T) {
	tests := []struct {
		name    string
		letters *mockLetterReader
		first   string
		last    string
	}{
		{
			name:    "unknown number",
			letters: &mockLetterReader{findErr: sql.ErrNoRows},
			first:   "John", last: "Doe",
		},
		{
			name: "already used",
			letters: func() *mockLetterReader {
				l := testLetter()
				l.IsUsed = true
				return &mockLetterReader{letter: l}
			}(),
			first: "John", last: "Doe",
		},
		{
			name:    "name mismatch",
			letters: &mockLetterReader{letter: testLetter()},
			first:   "Jane", last: "Doe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, cleanup := newAdmissionTestService(t, tt.letters, &mockAdmissionStore{}, newMockStatusCache())
			defer cleanup()

			_, err := svc.Verify(context.Background(), dto.VerifyAdmissionRequest{
				AdmissionNumber: "G1-2025-001",
				ChildFirstName:  tt.first,
				ChildLastName:   tt.last,
			})
			require.Error(t, err)

			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrVerificationFailed.Code, appErr.Code)
			assert.Equal(t, "admission letter not found, already used, or does not match the provided name", appErr.Message)
		})
	}
}

func TestAdmissionServiceRegisterSuccess(t *testing.T) {
	letters := &mockLetterReader{letter: testLetter()}
	store := &mockAdmissionStore{}
	svc, mock, cleanup := newAdmissionTestService(t, letters, store, newMockStatusCache())
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectCommit()

	admission, err := svc.Register(context.Background(), registerRequestFixture())
	require.NoError(t, err)

	assert.Equal(t, "adm-1", admission.ID)
	assert.Equal(t, models.AdmissionStatusPending, admission.Status)
	assert.Equal(t, []string{"G1-2025-001"}, letters.markedUsed)
	require.NotNil(t, store.created)
	assert.Equal(t, "jane.doe@example.com", store.created.Parents[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionServiceRegisterValidation(t *testing.T) {
	svc, _, cleanup := newAdmissionTestService(t, &mockLetterReader{letter: testLetter()}, &mockAdmissionStore{}, newMockStatusCache())
	defer cleanup()

	req := registerRequestFixture()
	req.Parents = nil

	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceRegisterUsedLetter(t *testing.T) {
	used := testLetter()
	used.IsUsed = true
	svc, _, cleanup := newAdmissionTestService(t, &mockLetterReader{letter: used}, &mockAdmissionStore{}, newMockStatusCache())
	defer cleanup()

	_, err := svc.Register(context.Background(), registerRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrVerificationFailed.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceRegisterLosesConcurrentRace(t *testing.T) {
	letters := &mockLetterReader{letter: testLetter(), markUsedErr: sql.ErrNoRows}
	store := &mockAdmissionStore{}
	svc, mock, cleanup := newAdmissionTestService(t, letters, store, newMockStatusCache())
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), registerRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrVerificationFailed.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionServiceRegisterCreateFailureRollsBack(t *testing.T) {
	letters := &mockLetterReader{letter: testLetter()}
	store := &mockAdmissionStore{createErr: errors.New("insert failed")}
	svc, mock, cleanup := newAdmissionTestService(t, letters, store, newMockStatusCache())
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), registerRequestFixture())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionServiceStatusCacheMissThenHit(t *testing.T) {
	cache := newMockStatusCache()
	cache.getErr = nil
	store := &mockAdmissionStore{byNumber: &models.StudentAdmission{
		AdmissionNumber:  "G1-2025-001",
		StudentFirstName: "John",
		StudentLastName:  "Doe",
		Status:           models.AdmissionStatusPending,
		SubmittedAt:      time.Now().UTC(),
	}}
	svc, _, cleanup := newAdmissionTestService(t, &mockLetterReader{}, store, cache)
	defer cleanup()

	first, err := svc.Status(context.Background(), "G1-2025-001")
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusPending, first.Status)

	// second lookup is served from cache even if the store would now fail
	store.byNumberErr = errors.New("db down")
	second, err := svc.Status(context.Background(), "G1-2025-001")
	require.NoError(t, err)
	assert.Equal(t, first.AdmissionNumber, second.AdmissionNumber)
}

func TestAdmissionServiceStatusNotFound(t *testing.T) {
	store := &mockAdmissionStore{byNumberErr: sql.ErrNoRows}
	svc, _, cleanup := newAdmissionTestService(t, &mockLetterReader{}, store, newMockStatusCache())
	defer cleanup()

	_, err := svc.Status(context.Background(), "G1-2025-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAdmissionServiceReviewApprove(t *testing.T) {
	pending := &models.StudentAdmission{
		ID:              "adm-1",
		AdmissionNumber: "G1-2025-001",
		Status:          models.AdmissionStatusPending,
	}
	store := &mockAdmissionStore{byID: pending, updateRows: 1}
	cache := newMockStatusCache()
	svc, _, cleanup := newAdmissionTestService(t, &mockLetterReader{}, store, cache)
	defer cleanup()

	var approved *models.StudentAdmission
	svc.OnApproved(func(_ context.Context, admission *models.StudentAdmission) {
		approved = admission
	})

	reviewed, err := svc.Review(context.Background(), "adm-1", dto.ReviewAdmissionRequest{
		Status: models.AdmissionStatusApproved,
		Note:   "welcome aboard",
	}, "staff-1")
	require.NoError(t, err)

	assert.Equal(t, models.AdmissionStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "staff-1", *reviewed.ReviewedBy)
	require.NotNil(t, approved)
	assert.Equal(t, "adm-1", approved.ID)
	assert.Contains(t, cache.deleted, "admission:status:G1-2025-001")
}

func TestAdmissionServiceReviewRejectSkipsProvisioning(t *testing.T) {
	pending := &models.StudentAdmission{ID: "adm-1", AdmissionNumber: "G1-2025-001", Status: models.AdmissionStatusPending}
	store := &mockAdmissionStore{byID: pending, updateRows: 1}
	svc, _, cleanup := newAdmissionTestService(t, &mockLetterReader{}, store, newMockStatusCache())
	defer cleanup()

	called := false
	svc.OnApproved(func(_ context.Context, _ *models.StudentAdmission) { called = true })

	reviewed, err := svc.Review(context.Background(), "adm-1", dto.ReviewAdmissionRequest{
		Status: models.AdmissionStatusRejected,
	}, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusRejected, reviewed.Status)
	assert.False(t, called)
}

func TestAdmissionServiceReviewAlreadyDecided(t *testing.T) {
	decided := &models.StudentAdmission{ID: "adm-1", AdmissionNumber: "G1-2025-001", Status: models.AdmissionStatusApproved}
	store := &mockAdmissionStore{byID: decided}
	svc, _, cleanup := newAdmissionTestService(t, &mockLetterReader{}, store, newMockStatusCache())
	defer cleanup()

	_, err := svc.Review(context.Background(), "adm-1", dto.ReviewAdmissionRequest{
		Status: models.AdmissionStatusRejected,
	}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyReviewed.Code, appErrors.FromError(err).Code)
	assert.False(t, store.updateCalled)
}

func TestAdmissionServiceReviewLostGuardedUpdate(t *testing.T) {
	pending := &models.StudentAdmission{ID: "adm-1", AdmissionNumber: "G1-2025-001", Status: models.AdmissionStatusPending}
	store := &mockAdmissionStore{byID: pending, updateRows: 0}
	svc, _, cleanup := newAdmissionTestService(t, &mockLetterReader{}, store, newMockStatusCache())
	defer cleanup()

	_, err := svc.Review(context.Background(), "adm-1", dto.ReviewAdmissionRequest{
		Status: models.AdmissionStatusApproved,
	}, "staff-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyReviewed.Code, appErrors.FromError(err).Code)
}
