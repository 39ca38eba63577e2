package service

import (
	"context"
	"errors"
	"strings"

	"akppos/internal/auth"
	"akppos/internal/dto"
	"akppos/internal/model"
	"akppos/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService is the ADMIN-only user administration of one tenant.
type UserService interface {
	List(ctx context.Context, p auth.Principal) ([]dto.UserResponse, error)
	Create(ctx context.Context, p auth.Principal, req dto.CreateUserRequest) (*dto.UserResponse, error)
	Update(ctx context.Context, p auth.Principal, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) List(ctx context.Context, p auth.Principal) ([]dto.UserResponse, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	users, err := s.repo.List(ctx, p.TenantID)
	if err != nil {
		return nil, persistence("list users", err)
	}
	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(&users[i])
	}
	return resp, nil
}

func (s *userService) Create(ctx context.Context, p auth.Principal, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	role := model.Role(req.Role)
	if !role.Valid() {
		return nil, &ValidationError{Msg: "role must be ADMIN or STAFF"}
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, &ConflictError{Msg: "Email already in use"}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence("find user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), BcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:           uuid.New(),
		TenantID:     p.TenantID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Msg: "Email already in use"}
		}
		return nil, persistence("create user", err)
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *userService) Update(ctx context.Context, p auth.Principal, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	user, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("get user", err)
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		if !role.Valid() {
			return nil, &ValidationError{Msg: "role must be ADMIN or STAFF"}
		}
		user.Role = role
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), BcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, persistence("update user", err)
	}
	resp := userToResponse(user)
	return &resp, nil
}

// Delete removes a user of the caller's tenant. Users that already rang up
// orders are kept by the foreign key and reported as a conflict.
func (s *userService) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	if id == p.UserID {
		return ErrCannotDeleteSelf
	}
	if err := s.repo.Delete(ctx, p.TenantID, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrUserNotFound
		case errors.Is(err, repository.ErrReferenced):
			return &ConflictError{Msg: "User has recorded orders and cannot be deleted"}
		}
		return persistence("delete user", err)
	}
	return nil
}
