package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

const admissionColumns = `id, admission_number, student_first_name, student_last_name, date_of_birth,
       place_of_birth, nationality, address_street, address_city, address_postal_code, address_state,
       parents, status, submitted_at, reviewed_by, reviewed_at, note`

// AdmissionRepository persists student admission records.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs the repository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

// BeginTx opens a transaction for multi-statement workflows.
func (r *AdmissionRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// CreateTx inserts a new admission row inside the provided transaction.
func (r *AdmissionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, admission *models.StudentAdmission) error {
	if admission.ID == "" {
		admission.ID = uuid.NewString()
	}
	if admission.Status == "" {
		admission.Status = models.AdmissionStatusPending
	}
	if admission.SubmittedAt.IsZero() {
		admission.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_admissions
        (id, admission_number, student_first_name, student_last_name, date_of_birth, place_of_birth,
         nationality, address_street, address_city, address_postal_code, address_state, parents,
         status, submitted_at, reviewed_by, reviewed_at, note)
        VALUES (:id, :admission_number, :student_first_name, :student_last_name, :date_of_birth, :place_of_birth,
         :nationality, :address_street, :address_city, :address_postal_code, :address_state, :parents,
         :status, :submitted_at, :reviewed_by, :reviewed_at, :note)`
	if _, err := tx.NamedExecContext(ctx, query, admission); err != nil {
		return fmt.Errorf("create admission: %w", err)
	}
	return nil
}

// FindByID returns an admission by identifier.
func (r *AdmissionRepository) FindByID(ctx context.Context, id string) (*models.StudentAdmission, error) {
	query := fmt.Sprintf("SELECT %s FROM student_admissions WHERE id = $1", admissionColumns)
	var admission models.StudentAdmission
	if err := r.db.GetContext(ctx, &admission, query, id); err != nil {
		return nil, err
	}
	return &admission, nil
}

// FindByNumber returns the admission submitted for an admission number.
func (r *AdmissionRepository) FindByNumber(ctx context.Context, admissionNumber string) (*models.StudentAdmission, error) {
	query := fmt.Sprintf("SELECT %s FROM student_admissions WHERE admission_number = $1", admissionColumns)
	var admission models.StudentAdmission
	if err := r.db.GetContext(ctx, &admission, query, admissionNumber); err != nil {
		return nil, err
	}
	return &admission, nil
}

// List returns admissions matching the filter, latest first.
func (r *AdmissionRepository) List(ctx context.Context, filter models.AdmissionFilter) ([]models.StudentAdmission, int, error) {
	base := "FROM student_admissions"
	var conditions []string
	var args []interface{}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AdmissionNumber != "" {
		args = append(args, filter.AdmissionNumber)
		conditions = append(conditions, fmt.Sprintf("admission_number = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(student_first_name ILIKE $%d OR student_last_name ILIKE $%d)", len(args), len(args)))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d",
		admissionColumns, base+clause, size, offset)

	var admissions []models.StudentAdmission
	if err := r.db.SelectContext(ctx, &admissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list admissions: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count admissions: %w", err)
	}
	return admissions, total, nil
}

// UpdateStatus persists a review decision. The guard on the PENDING status
// keeps the lifecycle monotone: a second review affects zero rows.
func (r *AdmissionRepository) UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus, reviewedBy string, reviewedAt time.Time, note *string) (int64, error) {
	const query = `UPDATE student_admissions
        SET status = $2, reviewed_by = $3, reviewed_at = $4, note = $5
        WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, reviewedAt, note)
	if err != nil {
		return 0, fmt.Errorf("update admission status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check admission update rows: %w", err)
	}
	return rows, nil
}
