package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/folio/internal/domain"
	"github.com/iho/folio/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Name:     r.Name,
		Currency: r.Currency,
	}
}

// ActivityRequest carries the full state of an activity for create and
// update. ID is optional on create and ignored on update.
type ActivityRequest struct {
	ID           string           `json:"id,omitempty"`
	AccountID    string           `json:"account_id"`
	AssetID      string           `json:"asset_id"`
	ActivityType string           `json:"activity_type"`
	Date         time.Time        `json:"date"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	Fee          decimal.Decimal  `json:"fee"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	Comment      string           `json:"comment,omitempty"`
	IsDraft      bool             `json:"is_draft"`
}

// ToNewActivity converts to the create input.
func (r *ActivityRequest) ToNewActivity() domain.NewActivity {
	return domain.NewActivity{
		ID:           r.ID,
		AccountID:    r.AccountID,
		AssetID:      r.AssetID,
		ActivityType: domain.ActivityType(r.ActivityType),
		Date:         r.Date,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		Fee:          r.Fee,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Comment:      r.Comment,
		IsDraft:      r.IsDraft,
	}
}

// ToActivityUpdate converts to the update input for activity id.
func (r *ActivityRequest) ToActivityUpdate(id string) domain.ActivityUpdate {
	return domain.ActivityUpdate{
		ID:           id,
		AccountID:    r.AccountID,
		AssetID:      r.AssetID,
		ActivityType: domain.ActivityType(r.ActivityType),
		Date:         r.Date,
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		Fee:          r.Fee,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Comment:      r.Comment,
		IsDraft:      r.IsDraft,
	}
}

// ImportActivitiesRequest represents a batch import into one account.
type ImportActivitiesRequest struct {
	Activities []ImportRow `json:"activities"`
}

// ImportRow is a single import line.
type ImportRow struct {
	ID           string           `json:"id,omitempty"`
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
	LineNumber   int              `json:"line_number,omitempty"`
}

// ToDomain converts the rows for accountID.
func (r *ImportActivitiesRequest) ToDomain(accountID string) []domain.ActivityImport {
	rows := make([]domain.ActivityImport, len(r.Activities))
	for i, row := range r.Activities {
		rows[i] = domain.ActivityImport{
			ID:           row.ID,
			AccountID:    accountID,
			Date:         row.Date,
			Symbol:       row.Symbol,
			ActivityType: domain.ActivityType(row.ActivityType),
			Quantity:     row.Quantity,
			UnitPrice:    row.UnitPrice,
			Currency:     row.Currency,
			Fee:          row.Fee,
			Amount:       row.Amount,
			IsDraft:      row.IsDraft,
			Comment:      row.Comment,
			LineNumber:   row.LineNumber,
		}
	}
	return rows
}

// ImportMappingRequest replaces the import mapping of an account.
type ImportMappingRequest struct {
	FieldMappings    map[string]string   `json:"field_mappings"`
	ActivityMappings map[string][]string `json:"activity_mappings"`
	SymbolMappings   map[string]string   `json:"symbol_mappings"`
}

// ToDomain converts to the mapping of accountID.
func (r *ImportMappingRequest) ToDomain(accountID string) domain.ImportMapping {
	return domain.ImportMapping{
		AccountID:        accountID,
		FieldMappings:    r.FieldMappings,
		ActivityMappings: r.ActivityMappings,
		SymbolMappings:   r.SymbolMappings,
	}
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
