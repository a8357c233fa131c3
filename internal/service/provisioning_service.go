package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/pkg/jobs"
)

type provisioningUserRepository interface {
	ExistsEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

// ProvisioningService creates parent and student accounts after an admission
// is approved. Account creation runs on a background queue so the review
// response never waits on hashing or user inserts.
type ProvisioningService struct {
	users  provisioningUserRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewProvisioningService constructs the service and its queue.
func NewProvisioningService(users provisioningUserRepository, cfg jobs.QueueConfig, logger *zap.Logger) *ProvisioningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ProvisioningService{users: users, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("provisioning", s.handleJob, cfg)
	return s
}

// Start begins background processing.
func (s *ProvisioningService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *ProvisioningService) Stop() {
	s.queue.Stop()
}

// EnqueueAdmission schedules account provisioning for an approved admission.
func (s *ProvisioningService) EnqueueAdmission(ctx context.Context, admission *models.StudentAdmission) {
	if admission == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "provision_accounts",
		Payload: *admission,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue provisioning job",
			zap.String("admission_id", admission.ID),
			zap.Error(err),
		)
	}
}

func (s *ProvisioningService) handleJob(ctx context.Context, job jobs.Job) error {
	admission, ok := job.Payload.(models.StudentAdmission)
	if !ok {
		s.logger.Error("unexpected provisioning payload type", zap.String("job_id", job.ID))
		return nil
	}
	return s.Provision(ctx, &admission)
}

// Provision creates one student account plus one account per guardian with a
// distinct email. Existing emails are skipped, which makes retries safe.
func (s *ProvisioningService) Provision(ctx context.Context, admission *models.StudentAdmission) error {
	studentEmail := studentEmailFor(admission)
	if err := s.createAccount(ctx, studentEmail,
		admission.StudentFirstName+" "+admission.StudentLastName, models.RoleStudent); err != nil {
		return fmt.Errorf("provision student account: %w", err)
	}

	for _, guardian := range admission.Parents {
		email := strings.ToLower(strings.TrimSpace(guardian.Email))
		if email == "" {
			continue
		}
		if err := s.createAccount(ctx, email,
			guardian.FirstName+" "+guardian.LastName, models.RoleParent); err != nil {
			return fmt.Errorf("provision guardian account: %w", err)
		}
	}

	s.logger.Info("accounts provisioned",
		zap.String("admission_id", admission.ID),
		zap.String("admission_number", admission.AdmissionNumber),
		zap.Int("guardians", len(admission.Parents)),
	)
	return nil
}

func (s *ProvisioningService) createAccount(ctx context.Context, email, fullName string, role models.UserRole) error {
	exists, err := s.users.ExistsEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	password, err := temporaryPassword()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(fullName),
		Role:         role,
		Active:       true,
	}
	return s.users.Create(ctx, user)
}

// studentEmailFor derives a deterministic school address keyed by the
// admission number so retried jobs target the same account.
func studentEmailFor(admission *models.StudentAdmission) string {
	slug := strings.ToLower(strings.ReplaceAll(admission.AdmissionNumber, "-", "."))
	return slug + "@students.sma.sch.id"
}

func temporaryPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
