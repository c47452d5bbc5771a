package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/folio/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Currency:  a.Currency,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is one page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// ActivityResponse represents an activity in API responses.
type ActivityResponse struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"account_id"`
	AssetID      string           `json:"asset_id"`
	ActivityType string           `json:"activity_type"`
	Date         time.Time        `json:"date"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	Fee          decimal.Decimal  `json:"fee"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Currency     string           `json:"currency"`
	Comment      string           `json:"comment,omitempty"`
	IsDraft      bool             `json:"is_draft"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ActivityFromDomain converts domain activity to response.
func ActivityFromDomain(a *domain.Activity) *ActivityResponse {
	return &ActivityResponse{
		ID:           a.ID,
		AccountID:    a.AccountID,
		AssetID:      a.AssetID,
		ActivityType: string(a.ActivityType),
		Date:         a.Date,
		Quantity:     a.Quantity,
		UnitPrice:    a.UnitPrice,
		Fee:          a.Fee,
		Amount:       a.Amount,
		Currency:     a.Currency,
		Comment:      a.Comment,
		IsDraft:      a.IsDraft,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ActivitiesFromDomain converts domain activities to responses.
func ActivitiesFromDomain(activities []*domain.Activity) []*ActivityResponse {
	result := make([]*ActivityResponse, len(activities))
	for i, a := range activities {
		result[i] = ActivityFromDomain(a)
	}
	return result
}

// ActivitySearchResponse is one page of a search.
type ActivitySearchResponse struct {
	Activities []*ActivityResponse `json:"activities"`
	Total      int64               `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

// ActivitySearchFromDomain converts a search result to response.
func ActivitySearchFromDomain(res *domain.ActivitySearchResult, limit, offset int) *ActivitySearchResponse {
	return &ActivitySearchResponse{
		Activities: ActivitiesFromDomain(res.Activities),
		Total:      res.Total,
		Limit:      limit,
		Offset:     offset,
	}
}

// ImportRowResponse is an import line with its check outcome.
type ImportRowResponse struct {
	ID           string           `json:"id,omitempty"`
	AccountID    string           `json:"account_id"`
	Date         time.Time        `json:"date"`
	Symbol       string           `json:"symbol"`
	ActivityType string           `json:"activity_type"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	Currency     string           `json:"currency"`
	Fee          decimal.Decimal  `json:"fee"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	IsDraft      bool             `json:"is_draft"`
	Comment      string           `json:"comment,omitempty"`
	IsValid      bool             `json:"is_valid"`
	Errors       []string         `json:"errors,omitempty"`
	LineNumber   int              `json:"line_number"`
}

// ImportRowsFromDomain converts import rows to responses.
func ImportRowsFromDomain(rows []domain.ActivityImport) []*ImportRowResponse {
	result := make([]*ImportRowResponse, len(rows))
	for i, r := range rows {
		result[i] = &ImportRowResponse{
			ID:           r.ID,
			AccountID:    r.AccountID,
			Date:         r.Date,
			Symbol:       r.Symbol,
			ActivityType: string(r.ActivityType),
			Quantity:     r.Quantity,
			UnitPrice:    r.UnitPrice,
			Currency:     r.Currency,
			Fee:          r.Fee,
			Amount:       r.Amount,
			IsDraft:      r.IsDraft,
			Comment:      r.Comment,
			IsValid:      r.IsValid,
			Errors:       r.Errors,
			LineNumber:   r.LineNumber,
		}
	}
	return result
}

// ImportResponse wraps the rows of an import or import check.
type ImportResponse struct {
	Activities []*ImportRowResponse `json:"activities"`
	Valid      int                  `json:"valid"`
	Invalid    int                  `json:"invalid"`
}

// ImportFromDomain converts import rows and counts their outcome.
func ImportFromDomain(rows []domain.ActivityImport) *ImportResponse {
	resp := &ImportResponse{Activities: ImportRowsFromDomain(rows)}
	for _, r := range rows {
		if r.IsValid {
			resp.Valid++
		} else {
			resp.Invalid++
		}
	}
	return resp
}

// ImportMappingResponse represents an account's import mapping.
type ImportMappingResponse struct {
	AccountID        string              `json:"account_id"`
	FieldMappings    map[string]string   `json:"field_mappings"`
	ActivityMappings map[string][]string `json:"activity_mappings"`
	SymbolMappings   map[string]string   `json:"symbol_mappings"`
	UpdatedAt        *time.Time          `json:"updated_at,omitempty"`
}

// ImportMappingFromDomain converts domain mapping to response. A mapping
// that was never saved has no UpdatedAt.
func ImportMappingFromDomain(m *domain.ImportMapping) *ImportMappingResponse {
	resp := &ImportMappingResponse{
		AccountID:        m.AccountID,
		FieldMappings:    m.FieldMappings,
		ActivityMappings: m.ActivityMappings,
		SymbolMappings:   m.SymbolMappings,
	}
	if !m.UpdatedAt.IsZero() {
		updatedAt := m.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
