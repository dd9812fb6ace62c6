package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-portal/meridian/internal/shared"
)

const resetTokenTTL = time.Hour

// ErrWeakPassword is returned when a password fails the strength rules.
var ErrWeakPassword = errors.New("password must be at least 8 characters with an uppercase letter, a lowercase letter and a digit")

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	mailer   Mailer
	activity shared.ActivityRecorder
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, mailer Mailer, activity shared.ActivityRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, mailer: mailer, activity: activity, logger: logger}
}

// ValidatePassword enforces the password strength rules.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// Authenticate validates email/password credentials. Failures are recorded
// in the activity log with the attempted email.
func (s *Service) Authenticate(ctx context.Context, email, password, ip string) (*Account, error) {
	email = strings.TrimSpace(email)
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.recordAnonymous(ctx, shared.ActionLoginFailed, ip, map[string]any{"email": email, "reason": "unknown email"})
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.recordAnonymous(ctx, shared.ActionLoginFailed, ip, map[string]any{"email": email, "reason": "bad password"})
		return nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		s.recordAnonymous(ctx, shared.ActionLoginFailed, ip, map[string]any{"email": email, "reason": "inactive"})
		return nil, shared.ErrAccountInactive
	}
	s.record(ctx, account.ID, shared.ActionLoginSuccess, ip, nil)
	return account, nil
}

// Register creates a new account with the default role.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName, ip string) (*Account, error) {
	email = strings.TrimSpace(email)
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account, err := s.repo.CreateAccount(ctx, Registration{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
	})
	if err != nil {
		s.recordAnonymous(ctx, shared.ActionSignupFailed, ip, map[string]any{"email": email})
		return nil, err
	}
	s.record(ctx, account.ID, shared.ActionSignupSuccess, ip, nil)
	return account, nil
}

// ChangePassword verifies the current password before storing a new one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	account, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.record(ctx, userID, shared.ActionPasswordChanged, "", nil)
	return nil
}

// StartPasswordReset issues a reset token and mails the reset link. It
// reports success regardless of whether the email is registered so the
// endpoint cannot be used to probe for accounts.
func (s *Service) StartPasswordReset(ctx context.Context, email, resetURL, ip string) error {
	email = strings.TrimSpace(email)
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if !account.IsActive {
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}
	if err := s.repo.CreateResetToken(ctx, hashResetToken(token), account.ID, time.Now().Add(resetTokenTTL)); err != nil {
		return err
	}
	s.record(ctx, account.ID, shared.ActionPasswordResetRequested, ip, nil)

	if s.mailer == nil || !s.mailer.IsConfigured() {
		s.logger.Warn("password reset requested but mailer not configured", slog.String("email", email))
		return nil
	}
	body := fmt.Sprintf("A password reset was requested for your account.\n\nReset your password within one hour:\n%s?token=%s\n\nIf you did not request this, ignore this message.", resetURL, token)
	if err := s.mailer.Send(account.Email, "Reset your password", body); err != nil {
		s.logger.Error("send reset mail", slog.Any("error", err))
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password. All
// database session records for the user are removed so other logins must
// re-authenticate.
func (s *Service) ResetPassword(ctx context.Context, token, next string) error {
	if err := ValidatePassword(next); err != nil {
		return err
	}
	userID, err := s.repo.ConsumeResetToken(ctx, hashResetToken(token))
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	if err := s.repo.DeleteSessionsForUser(ctx, userID); err != nil {
		s.logger.Warn("delete user sessions", slog.Any("error", err))
	}
	s.record(ctx, userID, shared.ActionPasswordResetSuccess, "", nil)
	return nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record and logs the logout.
func (s *Service) RemoveSession(ctx context.Context, id string, userID uuid.UUID, ip string) error {
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return err
	}
	if userID != uuid.Nil {
		s.record(ctx, userID, shared.ActionLogout, ip, nil)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID uuid.UUID, action, ip string, details map[string]any) {
	if s.activity == nil {
		return
	}
	id := actorID
	// Activity logging is best effort; failures never abort the operation.
	_ = s.activity.Record(ctx, shared.ActivityEntry{ActorID: &id, Action: action, Details: details, IP: ip})
}

func (s *Service) recordAnonymous(ctx context.Context, action, ip string, details map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.ActivityEntry{Action: action, Details: details, IP: ip})
}

func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
