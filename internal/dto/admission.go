package dto

import (
	"time"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// VerifyAdmissionRequest is the payload for POST /admission/verify.
type VerifyAdmissionRequest struct {
	AdmissionNumber string `json:"admission_number" validate:"required"`
	ChildFirstName  string `json:"child_first_name" validate:"required"`
	ChildLastName   string `json:"child_last_name" validate:"required"`
}

// VerifiedAdmission echoes the canonical letter data on a successful
// verification. Identity fields are immutable from the caller's side.
type VerifiedAdmission struct {
	AdmissionNumber string `json:"admission_number"`
	ChildFirstName  string `json:"child_first_name"`
	ChildLastName   string `json:"child_last_name"`
	GradeLevel      string `json:"grade_level"`
}

// RegisterAdmissionRequest is the flat merged registration payload sent once
// from the final wizard step. No nested wrapper keys.
type RegisterAdmissionRequest struct {
	AdmissionNumber  string            `json:"admission_number" validate:"required"`
	StudentFirstName string            `json:"student_first_name" validate:"required"`
	StudentLastName  string            `json:"student_last_name" validate:"required"`
	DateOfBirth      string            `json:"date_of_birth" validate:"required"`
	PlaceOfBirth     string            `json:"place_of_birth" validate:"required"`
	Nationality      string            `json:"nationality" validate:"required"`
	AddressStreet    string            `json:"address_street" validate:"required"`
	AddressCity      string            `json:"address_city" validate:"required"`
	AddressPostal    string            `json:"address_postal_code" validate:"required"`
	AddressState     string            `json:"address_state" validate:"required"`
	Parents          []models.Guardian `json:"parents" validate:"required,min=1,dive"`
}

// AdmissionStatusResponse is returned by GET /admission/status/:number.
type AdmissionStatusResponse struct {
	AdmissionNumber  string                 `json:"admission_number"`
	Status           models.AdmissionStatus `json:"status"`
	StudentFirstName string                 `json:"student_first_name"`
	StudentLastName  string                 `json:"student_last_name"`
	SubmittedAt      time.Time              `json:"submitted_at"`
	ReviewedAt       *time.Time             `json:"reviewed_at,omitempty"`
}

// ReviewAdmissionRequest carries a staff decision on a pending admission.
type ReviewAdmissionRequest struct {
	Status models.AdmissionStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Note   string                 `json:"note"`
}

// AdmissionQuery captures list filters for the admin review screen.
type AdmissionQuery struct {
	Status []models.AdmissionStatus
	Search string
	Page   int
	Limit  int
}

// FieldError is one schema-validation failure in the legacy wire shape.
// Loc is the path to the offending field, e.g. ["body","parents",0,"email"].
type FieldError struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

// DetailError is the error body of the public admission endpoints. Detail is
// either a plain string or a list of FieldError objects; the wizard client
// parses both forms.
type DetailError struct {
	Detail interface{} `json:"detail"`
}

// NewDetailString builds a string-detail error body.
func NewDetailString(msg string) DetailError {
	return DetailError{Detail: msg}
}

// NewDetailFields builds a field-list detail error body.
func NewDetailFields(fields []FieldError) DetailError {
	return DetailError{Detail: fields}
}
