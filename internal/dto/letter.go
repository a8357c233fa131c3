package dto

// CreateLetterRequest creates a single admission letter.
type CreateLetterRequest struct {
	AdmissionNumber string `json:"admission_number" validate:"required"`
	ChildFirstName  string `json:"child_first_name" validate:"required"`
	ChildLastName   string `json:"child_last_name" validate:"required"`
	GradeLevel      string `json:"grade_level" validate:"required"`
	AcademicYear    string `json:"academic_year" validate:"required"`
}

// LetterRow is one row of a bulk letter upload.
type LetterRow struct {
	AdmissionNumber string `json:"admission_number"`
	ChildFirstName  string `json:"child_first_name"`
	ChildLastName   string `json:"child_last_name"`
	GradeLevel      string `json:"grade_level"`
	AcademicYear    string `json:"academic_year"`
}

// BulkCreateLettersRequest uploads many letters at once.
type BulkCreateLettersRequest struct {
	Letters []LetterRow `json:"letters" validate:"required,min=1"`
}

// BulkRowError reports why a single bulk row was rejected.
type BulkRowError struct {
	Index           int    `json:"index"`
	AdmissionNumber string `json:"admission_number"`
	Error           string `json:"error"`
}

// BulkCreateLettersResult summarizes a bulk upload outcome.
type BulkCreateLettersResult struct {
	SuccessCount int            `json:"success_count"`
	ErrorCount   int            `json:"error_count"`
	Errors       []BulkRowError `json:"errors"`
}

// LetterExportResult points at a rendered roster export.
type LetterExportResult struct {
	FileName    string `json:"file_name"`
	Format      string `json:"format"`
	DownloadURL string `json:"download_url"`
	ExpiresAt   string `json:"expires_at"`
}
