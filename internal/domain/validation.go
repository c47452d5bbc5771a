package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
)

// Validation errors
var (
	ErrInvalidAccountName  = fmt.Errorf("%w: invalid account name", ErrValidation)
	ErrInvalidCurrency     = fmt.Errorf("%w: invalid currency code", ErrValidation)
	ErrInvalidIDFormat     = fmt.Errorf("%w: invalid ID format", ErrValidation)
	ErrInvalidActivityType = fmt.Errorf("%w: invalid activity type", ErrValidation)
	ErrMissingAccount      = fmt.Errorf("%w: account id is required", ErrValidation)
	ErrMissingAsset        = fmt.Errorf("%w: asset id is required", ErrValidation)
	ErrMissingDate         = fmt.Errorf("%w: activity date is required", ErrValidation)
	ErrNegativeAmount      = fmt.Errorf("%w: quantity, price and fee must not be negative", ErrValidation)
	ErrEmptyImport         = fmt.Errorf("%w: import contains no activities", ErrValidation)
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxIDLength          = 64
	MaxImportRows        = 50000
	DefaultPageSize      = 50
	MaxPageSize          = 1000
)

var (
	idRegex       = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

func fmtValidation(err error, value string) error {
	return fmt.Errorf("%w: %q", err, value)
}

// ValidateAccountName validates account name
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinAccountNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccountName)
	}

	if len(name) > MaxAccountNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccountName, MaxAccountNameLength)
	}

	return nil
}

// ValidateCurrency checks that currency is an uppercase ISO 4217 code.
// Codes are used verbatim in FX symbols, so lowercase input is rejected
// rather than normalized.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmtValidation(ErrInvalidCurrency, currency)
	}

	if money.GetCurrency(currency) == nil {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return nil
}

// ValidateID validates an account or activity identifier
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength || !idRegex.MatchString(id) {
		return fmtValidation(ErrInvalidIDFormat, id)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
