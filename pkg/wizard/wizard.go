package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
)

// Wizard steps. Registration runs StudentInfo through Parents; Success is the
// terminal confirmation screen after a 201 from the register endpoint.
const (
	StepStudentInfo = 1
	StepAddress     = 2
	StepParents     = 3
	StepSuccess     = 4
)

var (
	// ErrNotReady means Load has not run yet; guarded steps must not render.
	ErrNotReady = errors.New("wizard: state not loaded")
	// ErrNotVerified means no successful verification backs the draft.
	ErrNotVerified = errors.New("wizard: admission not verified")
	// ErrStepIncomplete blocks forward navigation past an unfinished step.
	ErrStepIncomplete = errors.New("wizard: current step has empty required fields")
	// ErrGuardianFloor blocks removing the last remaining guardian.
	ErrGuardianFloor = errors.New("wizard: at least one guardian is required")
	// ErrSubmitInFlight blocks a second submit while one is outstanding.
	ErrSubmitInFlight = errors.New("wizard: submission already in progress")
)

type admissionAPI interface {
	VerifyAdmission(ctx context.Context, req dto.VerifyAdmissionRequest) (*dto.VerifiedAdmission, error)
	RegisterAdmission(ctx context.Context, req dto.RegisterAdmissionRequest) (*models.StudentAdmission, error)
	AdmissionStatus(ctx context.Context, admissionNumber string) (*dto.AdmissionStatusResponse, error)
}

// RegistrationUpdate is a partial draft edit. Nil fields are left untouched,
// so applying the same update twice is a no-op the second time.
type RegistrationUpdate struct {
	StudentFirstName *string
	StudentLastName  *string
	DateOfBirth      *string
	PlaceOfBirth     *string
	Nationality      *string
	AddressStreet    *string
	AddressCity      *string
	AddressPostal    *string
	AddressState     *string
	Parents          []models.Guardian
}

// Wizard is the client-held admission registration state machine. All state
// transitions are local; the server sees exactly one call per action.
type Wizard struct {
	mu    sync.Mutex
	api   admissionAPI
	store *Store

	ready               bool
	submitting          bool
	verified            *dto.VerifiedAdmission
	draft               dto.RegisterAdmissionRequest
	currentStep         int
	registrationSuccess bool
	lastError           string
}

// New creates a Wizard. Call Load before anything else; until then every
// guarded operation fails with ErrNotReady.
func New(api admissionAPI, store *Store) *Wizard {
	return &Wizard{api: api, store: store, currentStep: StepStudentInfo}
}

// Load rehydrates persisted state and marks the wizard ready. It is the first
// phase of the two-phase init; guarded steps stay unreachable until it runs.
func (w *Wizard) Load() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.store != nil {
		state, err := w.store.Load()
		if err != nil {
			return err
		}
		if state != nil {
			w.verified = state.VerifiedAdmission
			w.draft = state.RegistrationData
			if state.CurrentStep >= StepStudentInfo && state.CurrentStep <= StepSuccess {
				w.currentStep = state.CurrentStep
			}
		}
	}
	w.ready = true
	return nil
}

// Ready reports whether Load completed.
func (w *Wizard) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

// Verify checks the admission letter and, on success, seeds a fresh draft
// with the letter's identity fields and resets the step pointer. On failure
// prior verified state is left untouched.
func (w *Wizard) Verify(ctx context.Context, admissionNumber, childFirstName, childLastName string) error {
	w.mu.Lock()
	if !w.ready {
		w.mu.Unlock()
		return ErrNotReady
	}
	w.mu.Unlock()

	verified, err := w.api.VerifyAdmission(ctx, dto.VerifyAdmissionRequest{
		AdmissionNumber: admissionNumber,
		ChildFirstName:  childFirstName,
		ChildLastName:   childLastName,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.lastError = err.Error()
		return err
	}

	w.verified = verified
	w.draft = dto.RegisterAdmissionRequest{
		AdmissionNumber:  verified.AdmissionNumber,
		StudentFirstName: verified.ChildFirstName,
		StudentLastName:  verified.ChildLastName,
		Parents:          []models.Guardian{{}},
	}
	w.currentStep = StepStudentInfo
	w.registrationSuccess = false
	w.lastError = ""
	return w.persistLocked()
}

// Verified returns the current verified admission, nil when none.
func (w *Wizard) Verified() *dto.VerifiedAdmission {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.verified == nil {
		return nil
	}
	clone := *w.verified
	return &clone
}

// Draft returns a copy of the accumulated registration data.
func (w *Wizard) Draft() dto.RegisterAdmissionRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draftCopyLocked()
}

// CurrentStep returns the active wizard step.
func (w *Wizard) CurrentStep() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentStep
}

// RegistrationSuccess reports whether a submission completed.
func (w *Wizard) RegistrationSuccess() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registrationSuccess
}

// LastError returns the most recent action error as display text.
func (w *Wizard) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

// GoTo navigates to a registration step. Without a verified admission every
// registration step redirects back to verification.
func (w *Wizard) GoTo(step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return ErrNotReady
	}
	if w.verified == nil {
		return ErrNotVerified
	}
	if step < StepStudentInfo || step > StepParents {
		return ErrStepIncomplete
	}
	if step > w.currentStep {
		for s := w.currentStep; s < step; s++ {
			if !w.stepCompleteLocked(s) {
				return ErrStepIncomplete
			}
		}
	}
	w.currentStep = step
	return w.persistLocked()
}

// Next advances one step when the current step's required fields are filled.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return ErrNotReady
	}
	if w.verified == nil {
		return ErrNotVerified
	}
	if w.currentStep >= StepParents {
		return ErrStepIncomplete
	}
	if !w.stepCompleteLocked(w.currentStep) {
		return ErrStepIncomplete
	}
	w.currentStep++
	return w.persistLocked()
}

// Back moves one step backward. Always allowed; later-step data is kept.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return ErrNotReady
	}
	if w.currentStep > StepStudentInfo {
		w.currentStep--
	}
	return w.persistLocked()
}

// UpdateRegistrationData shallow-merges a partial edit into the draft. The
// admission number and locked identity fields from verification are immune.
func (w *Wizard) UpdateRegistrationData(update RegistrationUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return ErrNotReady
	}
	if w.verified == nil {
		return ErrNotVerified
	}

	if update.StudentFirstName != nil {
		w.draft.StudentFirstName = *update.StudentFirstName
	}
	if update.StudentLastName != nil {
		w.draft.StudentLastName = *update.StudentLastName
	}
	if update.DateOfBirth != nil {
		w.draft.DateOfBirth = *update.DateOfBirth
	}
	if update.PlaceOfBirth != nil {
		w.draft.PlaceOfBirth = *update.PlaceOfBirth
	}
	if update.Nationality != nil {
		w.draft.Nationality = *update.Nationality
	}
	if update.AddressStreet != nil {
		w.draft.AddressStreet = *update.AddressStreet
	}
	if update.AddressCity != nil {
		w.draft.AddressCity = *update.AddressCity
	}
	if update.AddressPostal != nil {
		w.draft.AddressPostal = *update.AddressPostal
	}
	if update.AddressState != nil {
		w.draft.AddressState = *update.AddressState
	}
	if update.Parents != nil {
		w.draft.Parents = append([]models.Guardian(nil), update.Parents...)
	}
	return w.persistLocked()
}

// AddGuardian appends a guardian entry to the draft.
func (w *Wizard) AddGuardian(g models.Guardian) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return ErrNotReady
	}
	if w.verified == nil {
		return ErrNotVerified
	}
	w.draft.Parents = append(w.draft.Parents, g)
	return w.persistLocked()
}

// UpdateGuardian replaces the guardian at index i.
func (w *Wizard) UpdateGuardian(i int, g models.Guardian) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return ErrNotReady
	}
	if i < 0 || i >= len(w.draft.Parents) {
		return errors.New("wizard: guardian index out of range")
	}
	w.draft.Parents[i] = g
	return w.persistLocked()
}

// RemoveGuardian removes the guardian at index i, keeping a floor of one.
func (w *Wizard) RemoveGuardian(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return ErrNotReady
	}
	if len(w.draft.Parents) <= 1 {
		return ErrGuardianFloor
	}
	if i < 0 || i >= len(w.draft.Parents) {
		return errors.New("wizard: guardian index out of range")
	}
	w.draft.Parents = append(w.draft.Parents[:i], w.draft.Parents[i+1:]...)
	return w.persistLocked()
}

// CanRemoveGuardian reports whether removal is currently allowed.
func (w *Wizard) CanRemoveGuardian() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.draft.Parents) > 1
}

// PrimaryContacts returns the guardians currently flagged as primary
// contact. More than one is allowed; callers decide how to present that.
func (w *Wizard) PrimaryContacts() []models.Guardian {
	w.mu.Lock()
	defer w.mu.Unlock()
	var primaries []models.Guardian
	for _, g := range w.draft.Parents {
		if g.IsPrimaryContact {
			primaries = append(primaries, g)
		}
	}
	return primaries
}

// Submit sends the accumulated draft as one flat payload. Exactly one call
// may be in flight; a failure keeps the wizard on the Parents step with the
// draft intact so the user can correct and retry.
func (w *Wizard) Submit(ctx context.Context) (*models.StudentAdmission, error) {
	w.mu.Lock()
	if !w.ready {
		w.mu.Unlock()
		return nil, ErrNotReady
	}
	if w.verified == nil {
		w.mu.Unlock()
		return nil, ErrNotVerified
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	for s := StepStudentInfo; s <= StepParents; s++ {
		if !w.stepCompleteLocked(s) {
			w.mu.Unlock()
			return nil, ErrStepIncomplete
		}
	}
	w.submitting = true
	payload := w.draftCopyLocked()
	w.mu.Unlock()

	admission, err := w.api.RegisterAdmission(ctx, payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.lastError = err.Error()
		return nil, err
	}

	w.currentStep = StepSuccess
	w.registrationSuccess = true
	w.lastError = ""
	if perr := w.persistLocked(); perr != nil {
		return admission, perr
	}
	return admission, nil
}

// Status reads the admission status by number. Pure read, usable at any time
// regardless of wizard state.
func (w *Wizard) Status(ctx context.Context, admissionNumber string) (*dto.AdmissionStatusResponse, error) {
	return w.api.AdmissionStatus(ctx, admissionNumber)
}

// Reset clears all wizard state, including the persisted file.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.verified = nil
	w.draft = dto.RegisterAdmissionRequest{}
	w.currentStep = StepStudentInfo
	w.registrationSuccess = false
	w.submitting = false
	w.lastError = ""
	if w.store != nil {
		return w.store.Clear()
	}
	return nil
}

func (w *Wizard) draftCopyLocked() dto.RegisterAdmissionRequest {
	draft := w.draft
	draft.Parents = append([]models.Guardian(nil), w.draft.Parents...)
	return draft
}

func (w *Wizard) persistLocked() error {
	if w.store == nil {
		return nil
	}
	return w.store.Save(persistedState{
		VerifiedAdmission: w.verified,
		RegistrationData:  w.draftCopyLocked(),
		CurrentStep:       w.currentStep,
	})
}

func (w *Wizard) stepCompleteLocked(step int) bool {
	switch step {
	case StepStudentInfo:
		return allFilled(
			w.draft.StudentFirstName,
			w.draft.StudentLastName,
			w.draft.DateOfBirth,
			w.draft.PlaceOfBirth,
			w.draft.Nationality,
		)
	case StepAddress:
		return allFilled(
			w.draft.AddressStreet,
			w.draft.AddressCity,
			w.draft.AddressPostal,
			w.draft.AddressState,
		)
	case StepParents:
		if len(w.draft.Parents) == 0 {
			return false
		}
		for _, g := range w.draft.Parents {
			if !allFilled(g.FirstName, g.LastName, g.Email, g.Mobile, string(g.RelationType)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func allFilled(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
