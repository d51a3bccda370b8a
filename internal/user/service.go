package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/exxpenses/exxpenses/internal/auth"
	"github.com/exxpenses/exxpenses/internal/logging"
	"github.com/exxpenses/exxpenses/internal/money"
	"github.com/exxpenses/exxpenses/internal/token"
	"github.com/exxpenses/exxpenses/internal/validate"
)

var ErrInvalidCredentials = errors.New("incorrect email or password")

// EmailSender delivers account emails. Sends are fire and forget: they run
// after the state change commits and their failure never rolls it back.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, toEmail, tok string) error
	SendPasswordRecoveryEmail(ctx context.Context, toEmail, tok string) error
}

// Service handles account business logic
type Service struct {
	repo           *Repository
	verifyTokens   *token.Issuer
	recoveryTokens *token.Issuer
	emails         EmailSender
	logger         *logging.Logger
}

func NewService(
	repo *Repository,
	verifyTokens *token.Issuer,
	recoveryTokens *token.Issuer,
	emails EmailSender,
	logger *logging.Logger,
) *Service {
	return &Service{
		repo:           repo,
		verifyTokens:   verifyTokens,
		recoveryTokens: recoveryTokens,
		emails:         emails,
		logger:         logger,
	}
}

// Register creates a new account and kicks off email verification.
func (s *Service) Register(ctx context.Context, firstname, lastname, email, password string) (*User, error) {
	firstname = strings.TrimSpace(firstname)
	lastname = strings.TrimSpace(lastname)
	email = strings.ToLower(strings.TrimSpace(email))

	if ferr := validate.Texts(
		validate.Text{Field: "firstname", Value: firstname, MaxLen: NameMaxLen},
		validate.Text{Field: "lastname", Value: lastname, MaxLen: NameMaxLen},
	); ferr != nil {
		return nil, ferr
	}

	if len(email) == 0 || len(email) > EmailMaxLen {
		return nil, validate.NewFieldError("email", "invalid email address")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validate.NewFieldError("email", "invalid email address")
	}

	if len(password) < 8 {
		return nil, validate.NewFieldError("password", "can't be shorter than 8 characters")
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.repo.Create(ctx, firstname, lastname, email, passwordHash)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, validate.NewFieldError("email", "already in use")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendVerification(ctx, newUser.Email)

	return newUser, nil
}

// Login checks credentials. Unknown email and wrong password both come back
// as ErrInvalidCredentials so account existence doesn't leak.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !auth.VerifyPassword(existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return existing, nil
}

// Get returns the current user's account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// SendVerificationEmail issues a fresh verification token for a signed-in,
// not-yet-verified user. Returns false when there is nothing to do.
func (s *Service) SendVerificationEmail(ctx context.Context, id uuid.UUID) (bool, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if existing.EmailVerified {
		return false, nil
	}

	s.sendVerification(ctx, existing.Email)
	return true, nil
}

// VerifyEmail redeems a verification token. The redeem is a single atomic
// read-and-delete, so a token verifies at most one account once.
func (s *Service) VerifyEmail(ctx context.Context, tok string) (bool, error) {
	email, err := s.verifyTokens.Redeem(ctx, tok)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return s.repo.MarkEmailVerified(ctx, email)
}

// RequestPasswordRecovery issues a recovery token when the email belongs to
// an account. Always reports success to the caller to avoid enumeration.
func (s *Service) RequestPasswordRecovery(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		s.logger.Warn("failed to get user for password recovery", "error", err)
		return nil
	}

	tok, err := s.recoveryTokens.Issue(ctx, existing.Email)
	if err != nil {
		s.logger.Warn("failed to issue recovery token", "error", err)
		return nil
	}

	go func() {
		if err := s.emails.SendPasswordRecoveryEmail(context.Background(), existing.Email, tok); err != nil {
			s.logger.Warn("failed to send recovery email", "email", existing.Email, "error", err)
		}
	}()

	return nil
}

// IsRecoveryTokenValid peeks at a recovery token without consuming it, for
// UI-side validation of the recovery link.
func (s *Service) IsRecoveryTokenValid(ctx context.Context, tok string) bool {
	_, err := s.recoveryTokens.Peek(ctx, tok)
	return err == nil
}

// SetNewPassword redeems a recovery token and replaces the password.
func (s *Service) SetNewPassword(ctx context.Context, tok, password string) (bool, error) {
	if len(password) < 8 {
		return false, validate.NewFieldError("password", "can't be shorter than 8 characters")
	}

	email, err := s.recoveryTokens.Redeem(ctx, tok)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpdatePasswordByEmail(ctx, email, passwordHash)
}

// ChangePassword verifies the old password before storing a new one.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) (bool, error) {
	if len(newPassword) < 8 {
		return false, validate.NewFieldError("password", "can't be shorter than 8 characters")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if !auth.VerifyPassword(existing.PasswordHash, oldPassword) {
		return false, nil
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

// SetPreferredCurrency validates and stores the user's display currency.
func (s *Service) SetPreferredCurrency(ctx context.Context, id uuid.UUID, currency string) (bool, error) {
	currency = strings.TrimSpace(currency)
	if !money.ValidCurrency(currency) {
		return false, validate.NewFieldError("currency", "invalid currency")
	}

	return s.repo.SetPreferredCurrency(ctx, id, currency)
}

// DeleteAccount removes the account after confirming the password. Categories,
// expenses and the billing record cascade at the storage layer.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID, password string) (bool, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if !auth.VerifyPassword(existing.PasswordHash, password) {
		return false, nil
	}

	return s.repo.Delete(ctx, id)
}

func (s *Service) sendVerification(ctx context.Context, email string) {
	tok, err := s.verifyTokens.Issue(ctx, email)
	if err != nil {
		s.logger.Warn("failed to issue verification token", "email", email, "error", err)
		return
	}

	go func() {
		if err := s.emails.SendVerificationEmail(context.Background(), email, tok); err != nil {
			s.logger.Warn("failed to send verification email", "email", email, "error", err)
		}
	}()
}
