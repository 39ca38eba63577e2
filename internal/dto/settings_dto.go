package dto

import "github.com/shopspring/decimal"

// UpdateSettingsRequest is a partial update; absent fields keep their value.
type UpdateSettingsRequest struct {
	CompanyName    *string          `json:"companyName"    validate:"omitempty,min=1,max=120"`
	CompanyAddress *string          `json:"companyAddress" validate:"omitempty,max=255"`
	CompanyPhone   *string          `json:"companyPhone"   validate:"omitempty,max=40"`
	CompanyEmail   *string          `json:"companyEmail"   validate:"omitempty,email"`
	CompanyLogo    *string          `json:"companyLogo"    validate:"omitempty,max=500"`
	TaxRate        *decimal.Decimal `json:"taxRate"        validate:"omitempty,gte=0,lte=1"`
	Currency       *string          `json:"currency"       validate:"omitempty,len=3"`
}

type SettingsResponse struct {
	CompanyName    string          `json:"companyName"`
	CompanyAddress string          `json:"companyAddress"`
	CompanyPhone   string          `json:"companyPhone"`
	CompanyEmail   *string         `json:"companyEmail"`
	CompanyLogo    *string         `json:"companyLogo"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	Currency       string          `json:"currency"`
}
