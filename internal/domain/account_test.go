package domain

import (
	"errors"
	"testing"
)

func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name        string
		account     Account
		expectError error
	}{
		{
			name:    "valid account",
			account: Account{Name: "Brokerage", Currency: "USD"},
		},
		{
			name:        "blank name",
			account:     Account{Name: "  ", Currency: "USD"},
			expectError: ErrInvalidAccountName,
		},
		{
			name:        "unknown currency",
			account:     Account{Name: "Brokerage", Currency: "XXY"},
			expectError: ErrInvalidCurrency,
		},
		{
			name:        "missing currency",
			account:     Account{Name: "Brokerage"},
			expectError: ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if tt.expectError == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.expectError) {
				t.Fatalf("expected %v, got %v", tt.expectError, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected error to be a validation error, got %v", err)
			}
		})
	}
}
