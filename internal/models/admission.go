package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AdmissionStatus captures the review lifecycle of a submitted registration.
// Transitions are monotone: PENDING moves to APPROVED or REJECTED, never back.
type AdmissionStatus string

const (
	AdmissionStatusPending  AdmissionStatus = "PENDING"
	AdmissionStatusApproved AdmissionStatus = "APPROVED"
	AdmissionStatusRejected AdmissionStatus = "REJECTED"
)

// GuardianRelation enumerates the supported guardian relation types.
type GuardianRelation string

const (
	RelationMother   GuardianRelation = "mother"
	RelationFather   GuardianRelation = "father"
	RelationGuardian GuardianRelation = "guardian"
)

// Guardian is one parent/guardian attached to a registration. Guardians are
// embedded in the admission record, not standalone rows.
type Guardian struct {
	FirstName        string           `json:"first_name" validate:"required"`
	LastName         string           `json:"last_name" validate:"required"`
	Email            string           `json:"email" validate:"required,email"`
	Mobile           string           `json:"mobile" validate:"required"`
	Occupation       string           `json:"occupation"`
	RelationType     GuardianRelation `json:"relation_type" validate:"required,oneof=mother father guardian"`
	IsPrimaryContact bool             `json:"is_primary_contact"`
}

// GuardianList stores the embedded guardian slice as a JSONB column.
type GuardianList []Guardian

// Value implements driver.Valuer for JSONB persistence.
func (g GuardianList) Value() (driver.Value, error) {
	if g == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g)
}

// Scan implements sql.Scanner for JSONB persistence.
func (g *GuardianList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*g = nil
		return nil
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	default:
		return fmt.Errorf("unsupported guardian list source type %T", src)
	}
}

// StudentAdmission is a submitted-but-undecided registration record awaiting
// a staff decision. Approval provisions user accounts asynchronously.
type StudentAdmission struct {
	ID               string          `db:"id" json:"id"`
	AdmissionNumber  string          `db:"admission_number" json:"admission_number"`
	StudentFirstName string          `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string          `db:"student_last_name" json:"student_last_name"`
	DateOfBirth      string          `db:"date_of_birth" json:"date_of_birth"`
	PlaceOfBirth     string          `db:"place_of_birth" json:"place_of_birth"`
	Nationality      string          `db:"nationality" json:"nationality"`
	AddressStreet    string          `db:"address_street" json:"address_street"`
	AddressCity      string          `db:"address_city" json:"address_city"`
	AddressPostal    string          `db:"address_postal_code" json:"address_postal_code"`
	AddressState     string          `db:"address_state" json:"address_state"`
	Parents          GuardianList    `db:"parents" json:"parents"`
	Status           AdmissionStatus `db:"status" json:"status"`
	SubmittedAt      time.Time       `db:"submitted_at" json:"submitted_at"`
	ReviewedBy       *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Note             *string         `db:"note" json:"note,omitempty"`
}

// AdmissionFilter constrains admission listing queries.
type AdmissionFilter struct {
	Status          []AdmissionStatus
	AdmissionNumber string
	Search          string
	Page            int
	PageSize        int
}
