package wizard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
)

type fakeAPI struct {
	verifyResult   *dto.VerifiedAdmission
	verifyErr      error
	registerResult *models.StudentAdmission
	registerErr    error
	statusResult   *dto.AdmissionStatusResponse
	statusErr      error

	registerCalls []dto.RegisterAdmissionRequest
}

func (f *fakeAPI) VerifyAdmission(_ context.Context, _ dto.VerifyAdmissionRequest) (*dto.VerifiedAdmission, error) {
	return f.verifyResult, f.verifyErr
}

func (f *fakeAPI) RegisterAdmission(_ context.Context, req dto.RegisterAdmissionRequest) (*models.StudentAdmission, error) {
	f.registerCalls = append(f.registerCalls, req)
	return f.registerResult, f.registerErr
}

func (f *fakeAPI) AdmissionStatus(_ context.Context, _ string) (*dto.AdmissionStatusResponse, error) {
	return f.statusResult, f.statusErr
}

func verifiedFixture() *dto.VerifiedAdmission {
	return &dto.VerifiedAdmission{
		AdmissionNumber: "G1-2025-001",
		ChildFirstName:  "John",
		ChildLastName:   "Doe",
		GradeLevel:      "Grade 1",
	}
}

func readyWizard(t *testing.T, api admissionAPI) *Wizard {
	t.Helper()
	w := New(api, NewStore(filepath.Join(t.TempDir(), "wizard.json")))
	require.NoError(t, w.Load())
	return w
}

func str(s string) *string { return &s }

func fillSteps(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.UpdateRegistrationData(RegistrationUpdate{
		DateOfBirth:  str("2018-04-12"),
		PlaceOfBirth: str("Jakarta"),
		Nationality:  str("Indonesian"),
	}))
	require.NoError(t, w.Next())
	require.NoError(t, w.UpdateRegistrationData(RegistrationUpdate{
		AddressStreet: str("Jl. Merdeka 1"),
		AddressCity:   str("Jakarta"),
		AddressPostal: str("10110"),
		AddressState:  str("DKI Jakarta"),
	}))
	require.NoError(t, w.Next())
	require.NoError(t, w.UpdateGuardian(0, models.Guardian{
		FirstName:        "Jane",
		LastName:         "Doe",
		Email:            "jane.doe@example.com",
		Mobile:           "+628111111111",
		RelationType:     models.RelationMother,
		IsPrimaryContact: true,
	}))
}

func TestWizardRequiresLoadBeforeUse(t *testing.T) {
	w := New(&fakeAPI{}, nil)

	assert.ErrorIs(t, w.GoTo(StepAddress), ErrNotReady)
	assert.ErrorIs(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"), ErrNotReady)
}

func TestWizardStepsUnreachableWithoutVerification(t *testing.T) {
	w := readyWizard(t, &fakeAPI{})

	assert.ErrorIs(t, w.GoTo(StepStudentInfo), ErrNotVerified)
	assert.ErrorIs(t, w.Next(), ErrNotVerified)
	assert.ErrorIs(t, w.UpdateRegistrationData(RegistrationUpdate{Nationality: str("Indonesian")}), ErrNotVerified)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotVerified)
}

func TestWizardVerifySeedsDraft(t *testing.T) {
	w := readyWizard(t, &fakeAPI{verifyResult: verifiedFixture()})

	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))

	draft := w.Draft()
	assert.Equal(t, "G1-2025-001", draft.AdmissionNumber)
	assert.Equal(t, "John", draft.StudentFirstName)
	assert.Equal(t, "Doe", draft.StudentLastName)
	assert.Len(t, draft.Parents, 1)
	assert.Equal(t, StepStudentInfo, w.CurrentStep())
}

func TestWizardVerifyFailureKeepsPriorState(t *testing.T) {
	api := &fakeAPI{verifyResult: verifiedFixture()}
	w := readyWizard(t, api)
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))

	api.verifyResult = nil
	api.verifyErr = errors.New("admission letter not found, already used, or does not match the provided name")

	err := w.Verify(context.Background(), "G1-2025-999", "Jane", "Doe")
	require.Error(t, err)
	assert.Equal(t, "G1-2025-001", w.Verified().AdmissionNumber)
	assert.Equal(t, err.Error(), w.LastError())
}

func TestWizardForwardGating(t *testing.T) {
	w := readyWizard(t, &fakeAPI{verifyResult: verifiedFixture()})
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))

	// student info is still missing birth fields
	assert.ErrorIs(t, w.Next(), ErrStepIncomplete)

	require.NoError(t, w.UpdateRegistrationData(RegistrationUpdate{
		DateOfBirth:  str("2018-04-12"),
		PlaceOfBirth: str("Jakarta"),
		Nationality:  str("Indonesian"),
	}))
	require.NoError(t, w.Next())
	assert.Equal(t, StepAddress, w.CurrentStep())
}

func TestWizardBackwardKeepsLaterData(t *testing.T) {
	w := readyWizard(t, &fakeAPI{verifyResult: verifiedFixture()})
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))
	fillSteps(t, w)

	require.NoError(t, w.Back())
	require.NoError(t, w.Back())
	assert.Equal(t, StepStudentInfo, w.CurrentStep())

	draft := w.Draft()
	assert.Equal(t, "Jl. Merdeka 1", draft.AddressStreet)
	assert.Equal(t, "jane.doe@example.com", draft.Parents[0].Email)
}

func TestWizardUpdateIsShallowMergeIdempotent(t *testing.T) {
	w := readyWizard(t, &fakeAPI{verifyResult: verifiedFixture()})
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))

	update := RegistrationUpdate{
		Nationality:  str("Indonesian"),
		PlaceOfBirth: str("Jakarta"),
	}
	require.NoError(t, w.UpdateRegistrationData(update))
	once := w.Draft()
	require.NoError(t, w.UpdateRegistrationData(update))
	twice := w.Draft()

	assert.Equal(t, once, twice)
	assert.Equal(t, "John", twice.StudentFirstName)
}

func TestWizardGuardianFloor(t *testing.T) {
	w := readyWizard(t, &fakeAPI{verifyResult: verifiedFixture()})
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))

	assert.False(t, w.CanRemoveGuardian())
	assert.ErrorIs(t, w.RemoveGuardian(0), ErrGuardianFloor)

	require.NoError(t, w.AddGuardian(models.Guardian{FirstName: "Jim"}))
	require.NoError(t, w.AddGuardian(models.Guardian{FirstName: "Joan"}))
	assert.True(t, w.CanRemoveGuardian())

	require.NoError(t, w.RemoveGuardian(2))
	require.NoError(t, w.RemoveGuardian(1))
	assert.ErrorIs(t, w.RemoveGuardian(0), ErrGuardianFloor)
	assert.Len(t, w.Draft().Parents, 1)
}

func TestWizardAllowsMultiplePrimaryContacts(t *testing.T) {
	w := readyWizard(t, &fakeAPI{verifyResult: verifiedFixture()})
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))

	require.NoError(t, w.UpdateGuardian(0, models.Guardian{FirstName: "Jane", IsPrimaryContact: true}))
	require.NoError(t, w.AddGuardian(models.Guardian{FirstName: "Jim", IsPrimaryContact: true}))

	primaries := w.PrimaryContacts()
	require.Len(t, primaries, 2)
	assert.Equal(t, "Jane", primaries[0].FirstName)
	assert.Equal(t, "Jim", primaries[1].FirstName)
}

func TestWizardSubmitPayloadIsFlatMerge(t *testing.T) {
	api := &fakeAPI{
		verifyResult:   verifiedFixture(),
		registerResult: &models.StudentAdmission{ID: "adm-1", Status: models.AdmissionStatusPending},
	}
	w := readyWizard(t, api)
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))
	fillSteps(t, w)

	_, err := w.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, api.registerCalls, 1)
	sent := api.registerCalls[0]
	assert.Equal(t, "G1-2025-001", sent.AdmissionNumber)
	assert.Equal(t, "John", sent.StudentFirstName)
	assert.Equal(t, "Jl. Merdeka 1", sent.AddressStreet)
	require.Len(t, sent.Parents, 1)
	assert.Equal(t, "jane.doe@example.com", sent.Parents[0].Email)
}

func TestWizardSubmitSuccessKeepsDraft(t *testing.T) {
	api := &fakeAPI{
		verifyResult:   verifiedFixture(),
		registerResult: &models.StudentAdmission{ID: "adm-1", Status: models.AdmissionStatusPending},
	}
	w := readyWizard(t, api)
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))
	fillSteps(t, w)

	admission, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "adm-1", admission.ID)
	assert.Equal(t, StepSuccess, w.CurrentStep())
	assert.True(t, w.RegistrationSuccess())
	assert.Equal(t, "G1-2025-001", w.Draft().AdmissionNumber)
}

func TestWizardSubmitFailureStaysOnParentsStep(t *testing.T) {
	api := &fakeAPI{
		verifyResult: verifiedFixture(),
		registerErr:  &APIError{StatusCode: 422, Message: "body,parents,0,email: field required"},
	}
	w := readyWizard(t, api)
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))
	fillSteps(t, w)

	_, err := w.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepParents, w.CurrentStep())
	assert.False(t, w.RegistrationSuccess())
	assert.Equal(t, "body,parents,0,email: field required", w.LastError())

	// retry without re-entering anything
	api.registerErr = nil
	api.registerResult = &models.StudentAdmission{ID: "adm-1"}
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepSuccess, w.CurrentStep())
}

func TestWizardSubmitRequiresCompleteDraft(t *testing.T) {
	w := readyWizard(t, &fakeAPI{verifyResult: verifiedFixture()})
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrStepIncomplete)
}

func TestWizardStatePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.json")
	api := &fakeAPI{verifyResult: verifiedFixture()}

	w := New(api, NewStore(path))
	require.NoError(t, w.Load())
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))
	require.NoError(t, w.UpdateRegistrationData(RegistrationUpdate{
		DateOfBirth:  str("2018-04-12"),
		PlaceOfBirth: str("Jakarta"),
		Nationality:  str("Indonesian"),
	}))
	require.NoError(t, w.Next())

	restarted := New(api, NewStore(path))
	require.NoError(t, restarted.Load())
	assert.Equal(t, StepAddress, restarted.CurrentStep())
	assert.Equal(t, "G1-2025-001", restarted.Verified().AdmissionNumber)
	assert.Equal(t, "Jakarta", restarted.Draft().PlaceOfBirth)
}

func TestWizardResetClearsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.json")
	w := New(&fakeAPI{verifyResult: verifiedFixture()}, NewStore(path))
	require.NoError(t, w.Load())
	require.NoError(t, w.Verify(context.Background(), "G1-2025-001", "John", "Doe"))

	require.NoError(t, w.Reset())
	assert.Nil(t, w.Verified())
	assert.Equal(t, StepStudentInfo, w.CurrentStep())

	restarted := New(&fakeAPI{}, NewStore(path))
	require.NoError(t, restarted.Load())
	assert.Nil(t, restarted.Verified())
}
