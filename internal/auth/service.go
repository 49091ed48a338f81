// Package auth registers accounts, checks passwords and issues session tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"chess-quiz-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	DefaultTokenTTL   = 24 * time.Hour
)

// AccountRepository persists accounts. CreateAccount fails with ErrAccountExists on a
// duplicate username or email.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account domain.Account) (domain.Account, error)
	AccountByUsername(ctx context.Context, username string) (domain.Account, error)
	AccountByID(ctx context.Context, id int64) (domain.Account, error)
}

// Config holds the identity settings.
type Config struct {
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
}

// Service is the identity provider.
type Service struct {
	accounts  AccountRepository
	secret    []byte
	tokenTTL  time.Duration
	cost      int
	dummyHash []byte
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(accounts AccountRepository, cfg Config, logger *slog.Logger) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: empty token secret")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	// compared against when the username is unknown so both paths cost one bcrypt check
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &Service{
		accounts:  accounts,
		secret:    cfg.Secret,
		tokenTTL:  cfg.TokenTTL,
		cost:      cfg.BcryptCost,
		dummyHash: dummy,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Register creates an account. The username is kept as typed, the email is lower-cased.
func (s *Service) Register(ctx context.Context, username, email, password string) (domain.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < MinUsernameLength {
		return domain.Account{}, domain.Validation("username must be at least %d characters", MinUsernameLength)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return domain.Account{}, domain.Validation("invalid email address")
	}
	if len(password) < MinPasswordLength {
		return domain.Account{}, domain.Validation("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.Account{}, domain.Internal("hash password", err)
	}
	account, err := s.accounts.CreateAccount(ctx, domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountExists) {
			return domain.Account{}, err
		}
		return domain.Account{}, domain.Internal("create account", err)
	}
	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID)
	return account, nil
}

// Login checks the password and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (string, domain.Account, error) {
	account, err := s.accounts.AccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return "", domain.Account{}, domain.Internal("find account", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return "", domain.Account{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", domain.Account{}, domain.ErrInvalidCredentials
	}
	token, err := s.IssueToken(account.ID)
	if err != nil {
		return "", domain.Account{}, err
	}
	return token, account, nil
}

// IssueToken signs a token for an account.
func (s *Service) IssueToken(accountID int64) (string, error) {
	token, err := GenerateToken(accountID, s.secret, s.tokenTTL, s.now())
	if err != nil {
		return "", domain.Internal("sign token", err)
	}
	return token, nil
}

// VerifyToken resolves a token to its account id.
func (s *Service) VerifyToken(token string) (int64, error) {
	return ParseToken(token, s.secret)
}

// Me returns the account behind an authenticated request.
func (s *Service) Me(ctx context.Context, accountID int64) (domain.Account, error) {
	account, err := s.accounts.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.Account{}, err
		}
		return domain.Account{}, domain.Internal("find account", err)
	}
	return account, nil
}
