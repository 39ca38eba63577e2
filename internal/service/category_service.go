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
	"gorm.io/gorm"
)

type CategoryService interface {
	Create(ctx context.Context, p auth.Principal, req dto.CategoryRequest) (*dto.CategoryResponse, error)
	List(ctx context.Context, p auth.Principal) ([]dto.CategoryResponse, error)
	Rename(ctx context.Context, p auth.Principal, id uuid.UUID, req dto.CategoryRequest) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error
}

type categoryService struct {
	repo     repository.CategoryRepository
	products repository.ProductRepository
}

func NewCategoryService(repo repository.CategoryRepository, products repository.ProductRepository) CategoryService {
	return &categoryService{repo: repo, products: products}
}

var errDuplicateCategory = &ConflictError{Msg: "A category with this name already exists"}

func (s *categoryService) Create(ctx context.Context, p auth.Principal, req dto.CategoryRequest) (*dto.CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Msg: "name is required"}
	}
	if err := s.ensureNameFree(ctx, p.TenantID, name, uuid.Nil); err != nil {
		return nil, err
	}

	cat := &model.Category{ID: uuid.New(), TenantID: p.TenantID, Name: name}
	if err := s.repo.Create(ctx, cat); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errDuplicateCategory
		}
		return nil, persistence("create category", err)
	}
	return &dto.CategoryResponse{ID: cat.ID, Name: cat.Name}, nil
}

func (s *categoryService) List(ctx context.Context, p auth.Principal) ([]dto.CategoryResponse, error) {
	list, err := s.repo.List(ctx, p.TenantID)
	if err != nil {
		return nil, persistence("list categories", err)
	}
	out := make([]dto.CategoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, dto.CategoryResponse{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (s *categoryService) Rename(ctx context.Context, p auth.Principal, id uuid.UUID, req dto.CategoryRequest) (*dto.CategoryResponse, error) {
	cat, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, persistence("get category", err)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Msg: "name is required"}
	}
	if err := s.ensureNameFree(ctx, p.TenantID, name, cat.ID); err != nil {
		return nil, err
	}

	cat.Name = name
	if err := s.repo.Update(ctx, cat); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errDuplicateCategory
		}
		return nil, persistence("rename category", err)
	}
	return &dto.CategoryResponse{ID: cat.ID, Name: cat.Name}, nil
}

// Delete refuses while active products still point at the category.
func (s *categoryService) Delete(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, p.TenantID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return persistence("get category", err)
	}
	n, err := s.products.CountActiveByCategory(ctx, p.TenantID, id)
	if err != nil {
		return persistence("count category products", err)
	}
	if n > 0 {
		return &ConflictError{Msg: "Category still has active products"}
	}
	if err := s.repo.Delete(ctx, p.TenantID, id); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrCategoryNotFound
		case errors.Is(err, repository.ErrReferenced):
			return &ConflictError{Msg: "Category is still referenced by products"}
		}
		return persistence("delete category", err)
	}
	return nil
}

// ensureNameFree checks the case-insensitive per-tenant uniqueness; the
// database index backs it up under races.
func (s *categoryService) ensureNameFree(ctx context.Context, tenantID uuid.UUID, name string, self uuid.UUID) error {
	existing, err := s.repo.FindByName(ctx, tenantID, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return persistence("find category", err)
	}
	if existing.ID != self {
		return errDuplicateCategory
	}
	return nil
}
