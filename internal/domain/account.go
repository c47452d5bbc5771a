package domain

import "time"

// Account is a portfolio account. Currency is its base (settlement) currency.
type Account struct {
	ID        string
	Name      string
	Currency  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the account fields before it is persisted.
func (a *Account) Validate() error {
	if err := ValidateAccountName(a.Name); err != nil {
		return err
	}

	return ValidateCurrency(a.Currency)
}
