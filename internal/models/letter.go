package models

import "time"

// AdmissionLetter is a pre-issued, single-use authorization tying an
// admission number to a specific child's identity. Letters are never
// deleted; a successful registration flips IsUsed exactly once.
type AdmissionLetter struct {
	ID              string     `db:"id" json:"id"`
	AdmissionNumber string     `db:"admission_number" json:"admission_number"`
	ChildFirstName  string     `db:"child_first_name" json:"child_first_name"`
	ChildLastName   string     `db:"child_last_name" json:"child_last_name"`
	GradeLevel      string     `db:"grade_level" json:"grade_level"`
	AcademicYear    string     `db:"academic_year" json:"academic_year"`
	IsUsed          bool       `db:"is_used" json:"is_used"`
	CreatedBy       *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UsedAt          *time.Time `db:"used_at" json:"used_at,omitempty"`
}

// LetterFilter constrains letter listing queries.
type LetterFilter struct {
	Search       string
	GradeLevel   string
	AcademicYear string
	IsUsed       *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
