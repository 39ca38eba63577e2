package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"akppos/internal/auth"
	"akppos/internal/dto"
	"akppos/internal/model"
	"akppos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BcryptCost is the work factor for every stored password hash.
const BcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	// Register signs up a new store: tenant, first ADMIN user and default
	// settings are created in one transaction.
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.LoginResponse, error)
	Me(ctx context.Context, p auth.Principal) (*dto.UserResponse, error)
}

type authService struct {
	tx       repository.TxRunner
	users    repository.UserRepository
	tenants  repository.TenantRepository
	settings repository.SettingsRepository
	tokens   *auth.Manager
}

func NewAuthService(
	tx repository.TxRunner,
	users repository.UserRepository,
	tenants repository.TenantRepository,
	settings repository.SettingsRepository,
	tokens *auth.Manager,
) AuthService {
	return &authService{tx: tx, users: users, tenants: tenants, settings: settings, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistence("find user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.LoginResponse, error) {
	if err := checkPasswordStrength(req.Password); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, &ConflictError{Msg: "Email already registered"}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence("find user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), BcryptCost)
	if err != nil {
		return nil, err
	}

	storeName := strings.TrimSpace(req.StoreName)
	if storeName == "" {
		storeName = strings.TrimSpace(req.Name) + "'s Store"
	}
	tenant := &model.Tenant{ID: uuid.New(), Name: storeName}
	user := &model.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         model.RoleAdmin,
	}

	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.tenants.CreateTx(tx, tenant); err != nil {
			return err
		}
		if err := s.users.CreateTx(tx, user); err != nil {
			return err
		}
		return s.settings.CreateIfMissingTx(tx, DefaultSettings(tenant))
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Msg: "Email already registered"}
		}
		log.Error().Err(err).Str("email", email).Msg("register failed")
		return nil, persistence("register", err)
	}
	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, p auth.Principal) (*dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, p.TenantID, p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("get user", err)
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) issue(user *model.User) (*dto.LoginResponse, error) {
	token, err := s.tokens.Issue(auth.PrincipalFor(user))
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, User: userToResponse(user)}, nil
}

// checkPasswordStrength requires an upper-case letter, a lower-case letter
// and a digit on top of the length enforced by the request tags.
func checkPasswordStrength(pw string) error {
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if len(pw) < 8 || !upper || !lower || !digit {
		return &ValidationError{Msg: "Password must be at least 8 characters and contain an uppercase letter, a lowercase letter and a number"}
	}
	return nil
}

func userToResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		TenantID:  u.TenantID,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
