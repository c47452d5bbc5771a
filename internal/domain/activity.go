package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType classifies a portfolio activity.
type ActivityType string

const (
	ActivityTypeBuy           ActivityType = "BUY"
	ActivityTypeSell          ActivityType = "SELL"
	ActivityTypeDividend      ActivityType = "DIVIDEND"
	ActivityTypeInterest      ActivityType = "INTEREST"
	ActivityTypeDeposit       ActivityType = "DEPOSIT"
	ActivityTypeWithdrawal    ActivityType = "WITHDRAWAL"
	ActivityTypeTransferIn    ActivityType = "TRANSFER_IN"
	ActivityTypeTransferOut   ActivityType = "TRANSFER_OUT"
	ActivityTypeFee           ActivityType = "FEE"
	ActivityTypeTax           ActivityType = "TAX"
	ActivityTypeSplit         ActivityType = "SPLIT"
	ActivityTypeAddHolding    ActivityType = "ADD_HOLDING"
	ActivityTypeRemoveHolding ActivityType = "REMOVE_HOLDING"
	ActivityTypeConversionIn  ActivityType = "CONVERSION_IN"
	ActivityTypeConversionOut ActivityType = "CONVERSION_OUT"
)

var activityTypes = map[ActivityType]bool{
	ActivityTypeBuy:           true,
	ActivityTypeSell:          true,
	ActivityTypeDividend:      true,
	ActivityTypeInterest:      true,
	ActivityTypeDeposit:       true,
	ActivityTypeWithdrawal:    true,
	ActivityTypeTransferIn:    true,
	ActivityTypeTransferOut:   true,
	ActivityTypeFee:           true,
	ActivityTypeTax:           true,
	ActivityTypeSplit:         true,
	ActivityTypeAddHolding:    true,
	ActivityTypeRemoveHolding: true,
	ActivityTypeConversionIn:  true,
	ActivityTypeConversionOut: true,
}

// IsValid reports whether t is a known activity type.
func (t ActivityType) IsValid() bool {
	return activityTypes[t]
}

// IsTrade reports whether the activity moves a tradable instrument.
func (t ActivityType) IsTrade() bool {
	switch t {
	case ActivityTypeBuy, ActivityTypeSell, ActivityTypeSplit,
		ActivityTypeAddHolding, ActivityTypeRemoveHolding:
		return true
	}
	return false
}

// Activity is a single stored portfolio activity.
//
// Currency is the native currency of the activity and may differ from the
// owning account's currency. An empty Currency means the activity is
// denominated in the account's currency.
type Activity struct {
	ID           string
	AccountID    string
	AssetID      string
	ActivityType ActivityType
	Date         time.Time
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Fee          decimal.Decimal
	Amount       *decimal.Decimal
	Currency     string
	Comment      string
	IsDraft      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewActivity is the input for creating an activity. ID is optional.
type NewActivity struct {
	ID           string
	AccountID    string
	AssetID      string
	ActivityType ActivityType
	Date         time.Time
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Fee          decimal.Decimal
	Amount       *decimal.Decimal
	Currency     string
	Comment      string
	IsDraft      bool
}

// Validate checks a new activity before it reaches the store.
func (a *NewActivity) Validate() error {
	if a.ID != "" {
		if err := ValidateID(a.ID); err != nil {
			return err
		}
	}
	return validateActivityFields(a.AccountID, a.AssetID, a.ActivityType, a.Currency)
}

// ActivityUpdate carries the full new state of an existing activity.
type ActivityUpdate struct {
	ID           string
	AccountID    string
	AssetID      string
	ActivityType ActivityType
	Date         time.Time
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Fee          decimal.Decimal
	Amount       *decimal.Decimal
	Currency     string
	Comment      string
	IsDraft      bool
}

// Validate checks an update before it reaches the store.
func (a *ActivityUpdate) Validate() error {
	if err := ValidateID(a.ID); err != nil {
		return err
	}
	return validateActivityFields(a.AccountID, a.AssetID, a.ActivityType, a.Currency)
}

func validateActivityFields(accountID, assetID string, typ ActivityType, currency string) error {
	if accountID == "" {
		return ErrMissingAccount
	}
	if err := ValidateID(accountID); err != nil {
		return err
	}
	if assetID == "" {
		return ErrMissingAsset
	}
	if !typ.IsValid() {
		return fmtValidation(ErrInvalidActivityType, string(typ))
	}
	if currency != "" {
		return ValidateCurrency(currency)
	}
	return nil
}

// ActivitySearch filters a paged activity listing.
type ActivitySearch struct {
	AccountIDs    []string
	ActivityTypes []ActivityType
	AssetKeyword  string
	SortBy        string
	SortDesc      bool
	Limit         int
	Offset        int
}

// ActivitySearchResult is one page of activities plus the unpaged total.
type ActivitySearchResult struct {
	Activities []*Activity
	Total      int64
}
