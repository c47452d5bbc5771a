package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityImport is one row of a batch import. Symbol is empty for pure cash
// movements.
type ActivityImport struct {
	ID           string           `json:"id,omitempty"`
	AccountID    string           `json:"accountId"`
	Date         time.Time        `json:"date"`
	Symbol       string           `json:"symbol"`
	ActivityType ActivityType     `json:"activityType"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	Currency     string           `json:"currency"`
	Fee          decimal.Decimal  `json:"fee"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	IsDraft      bool             `json:"isDraft"`
	Comment      string           `json:"comment,omitempty"`
	IsValid      bool             `json:"isValid"`
	Errors       []string         `json:"errors,omitempty"`
	LineNumber   int              `json:"lineNumber,omitempty"`
}

// Check validates the row in place, filling IsValid and Errors.
func (r *ActivityImport) Check() bool {
	r.Errors = nil

	if !r.ActivityType.IsValid() {
		r.Errors = append(r.Errors, fmtValidation(ErrInvalidActivityType, string(r.ActivityType)).Error())
	}
	if r.ActivityType.IsTrade() && r.Symbol == "" {
		r.Errors = append(r.Errors, ErrMissingAsset.Error())
	}
	if r.Currency != "" {
		if err := ValidateCurrency(r.Currency); err != nil {
			r.Errors = append(r.Errors, err.Error())
		}
	}
	if r.Date.IsZero() {
		r.Errors = append(r.Errors, ErrMissingDate.Error())
	}
	if r.Quantity.IsNegative() || r.UnitPrice.IsNegative() || r.Fee.IsNegative() {
		r.Errors = append(r.Errors, ErrNegativeAmount.Error())
	}

	r.IsValid = len(r.Errors) == 0
	return r.IsValid
}

// ImportMapping remembers how a broker export maps onto activity fields for
// one account.
type ImportMapping struct {
	AccountID        string              `json:"accountId"`
	FieldMappings    map[string]string   `json:"fieldMappings"`
	ActivityMappings map[string][]string `json:"activityMappings"`
	SymbolMappings   map[string]string   `json:"symbolMappings"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// DefaultImportMapping is returned for accounts that never saved a mapping.
func DefaultImportMapping(accountID string) *ImportMapping {
	return &ImportMapping{
		AccountID: accountID,
		FieldMappings: map[string]string{
			"date":         "date",
			"symbol":       "symbol",
			"quantity":     "quantity",
			"activityType": "activityType",
			"unitPrice":    "unitPrice",
			"amount":       "amount",
			"currency":     "currency",
			"fee":          "fee",
		},
		ActivityMappings: map[string][]string{},
		SymbolMappings:   map[string]string{},
	}
}
