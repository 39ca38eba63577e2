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
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

// Defaults applied when a tenant reads its settings for the first time.
const (
	DefaultCompanyName    = "MGYPOS"
	DefaultCompanyAddress = "123 Business Street, City, State 12345"
	DefaultCompanyPhone   = "(555) 123-4567"
	DefaultCurrency       = "USD"
)

var DefaultTaxRate = decimal.RequireFromString("0.10")

type SettingsService interface {
	// Get returns the tenant's settings, creating the defaults on first read.
	Get(ctx context.Context, p auth.Principal) (*dto.SettingsResponse, error)
	Update(ctx context.Context, p auth.Principal, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
	// ForTenant is the internal read used by the invoice renderer.
	ForTenant(ctx context.Context, tenantID uuid.UUID) (*model.Settings, error)
}

type settingsService struct {
	tx      repository.TxRunner
	repo    repository.SettingsRepository
	tenants repository.TenantRepository
}

func NewSettingsService(tx repository.TxRunner, repo repository.SettingsRepository, tenants repository.TenantRepository) SettingsService {
	return &settingsService{tx: tx, repo: repo, tenants: tenants}
}

// DefaultSettings builds the initial settings row of t.
func DefaultSettings(t *model.Tenant) *model.Settings {
	name := DefaultCompanyName
	if t != nil && strings.TrimSpace(t.Name) != "" {
		name = t.Name
	}
	s := &model.Settings{
		ID:             uuid.New(),
		CompanyName:    name,
		CompanyAddress: DefaultCompanyAddress,
		CompanyPhone:   DefaultCompanyPhone,
		TaxRate:        DefaultTaxRate,
		Currency:       DefaultCurrency,
	}
	if t != nil {
		s.TenantID = t.ID
	}
	return s
}

func (s *settingsService) Get(ctx context.Context, p auth.Principal) (*dto.SettingsResponse, error) {
	st, err := s.ForTenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	resp := settingsToResponse(st)
	return &resp, nil
}

func (s *settingsService) ForTenant(ctx context.Context, tenantID uuid.UUID) (*model.Settings, error) {
	st, err := s.repo.FindByTenant(ctx, tenantID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence("get settings", err)
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence("get tenant", err)
	}
	defaults := DefaultSettings(tenant)
	defaults.TenantID = tenantID

	// Concurrent first reads race on the tenant_id unique index; the loser's
	// insert is a no-op and both read back the winner's row.
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		return s.repo.CreateIfMissingTx(tx, defaults)
	})
	if err != nil {
		return nil, persistence("create default settings", err)
	}
	st, err = s.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, persistence("get settings", err)
	}
	return st, nil
}

func (s *settingsService) Update(ctx context.Context, p auth.Principal, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	st, err := s.ForTenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	if req.CompanyName != nil {
		st.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.CompanyAddress != nil {
		st.CompanyAddress = *req.CompanyAddress
	}
	if req.CompanyPhone != nil {
		st.CompanyPhone = *req.CompanyPhone
	}
	if req.CompanyEmail != nil {
		st.CompanyEmail = req.CompanyEmail
	}
	if req.CompanyLogo != nil {
		st.CompanyLogo = req.CompanyLogo
	}
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, &ValidationError{Msg: "taxRate must be between 0 and 1"}
		}
		st.TaxRate = *req.TaxRate
	}
	if req.Currency != nil {
		unit, err := currency.ParseISO(strings.ToUpper(*req.Currency))
		if err != nil {
			return nil, &ValidationError{Msg: "currency must be a valid ISO 4217 code"}
		}
		st.Currency = unit.String()
	}

	if err := s.repo.Update(ctx, st); err != nil {
		return nil, persistence("update settings", err)
	}
	resp := settingsToResponse(st)
	return &resp, nil
}

func settingsToResponse(s *model.Settings) dto.SettingsResponse {
	return dto.SettingsResponse{
		CompanyName:    s.CompanyName,
		CompanyAddress: s.CompanyAddress,
		CompanyPhone:   s.CompanyPhone,
		CompanyEmail:   s.CompanyEmail,
		CompanyLogo:    s.CompanyLogo,
		TaxRate:        s.TaxRate,
		Currency:       s.Currency,
	}
}
