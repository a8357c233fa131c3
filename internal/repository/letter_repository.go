package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// LetterRepository handles persistence of admission letters.
type LetterRepository struct {
	db *sqlx.DB
}

// NewLetterRepository constructs the repository.
func NewLetterRepository(db *sqlx.DB) *LetterRepository {
	return &LetterRepository{db: db}
}

// List returns letters filtered by the provided criteria.
func (r *LetterRepository) List(ctx context.Context, filter models.LetterFilter) ([]models.AdmissionLetter, int, error) {
	base := "FROM admission_letters"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(admission_number ILIKE $%d OR child_first_name ILIKE $%d OR child_last_name ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.IsUsed != nil {
		conditions = append(conditions, fmt.Sprintf("is_used = $%d", len(args)+1))
		args = append(args, *filter.IsUsed)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":       "created_at",
		"admission_number": "admission_number",
		"grade_level":      "grade_level",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT id, admission_number, child_first_name, child_last_name, grade_level,
        academic_year, is_used, created_by, created_at, used_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var letters []models.AdmissionLetter
	if err := r.db.SelectContext(ctx, &letters, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list letters: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count letters: %w", err)
	}
	return letters, total, nil
}

// FindByNumber returns a letter by its admission number.
func (r *LetterRepository) FindByNumber(ctx context.Context, admissionNumber string) (*models.AdmissionLetter, error) {
	const query = `SELECT id, admission_number, child_first_name, child_last_name, grade_level,
        academic_year, is_used, created_by, created_at, used_at
        FROM admission_letters WHERE admission_number = $1`
	var letter models.AdmissionLetter
	if err := r.db.GetContext(ctx, &letter, query, admissionNumber); err != nil {
		return nil, err
	}
	return &letter, nil
}

// ExistsNumber checks whether an admission number is already issued.
func (r *LetterRepository) ExistsNumber(ctx context.Context, admissionNumber string) (bool, error) {
	const query = "SELECT 1 FROM admission_letters WHERE admission_number = $1 LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, admissionNumber); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check letter number: %w", err)
	}
	return true, nil
}

// Create persists a new admission letter.
func (r *LetterRepository) Create(ctx context.Context, letter *models.AdmissionLetter) error {
	if letter.ID == "" {
		letter.ID = uuid.NewString()
	}
	if letter.CreatedAt.IsZero() {
		letter.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO admission_letters
        (id, admission_number, child_first_name, child_last_name, grade_level, academic_year, is_used, created_by, created_at, used_at)
        VALUES (:id, :admission_number, :child_first_name, :child_last_name, :grade_level, :academic_year, :is_used, :created_by, :created_at, :used_at)`
	if _, err := r.db.NamedExecContext(ctx, query, letter); err != nil {
		return fmt.Errorf("create letter: %w", err)
	}
	return nil
}

// MarkUsedTx flags a letter consumed inside the provided transaction. The
// guard on is_used makes consumption single-shot: a second registration for
// the same number affects zero rows and returns sql.ErrNoRows.
func (r *LetterRepository) MarkUsedTx(ctx context.Context, tx *sqlx.Tx, admissionNumber string, usedAt time.Time) error {
	const query = `UPDATE admission_letters SET is_used = TRUE, used_at = $2
        WHERE admission_number = $1 AND is_used = FALSE`
	result, err := tx.ExecContext(ctx, query, admissionNumber, usedAt)
	if err != nil {
		return fmt.Errorf("mark letter used: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check letter update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
