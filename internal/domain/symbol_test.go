package domain

import "testing"

func TestFXSymbol(t *testing.T) {
	testCases := []struct {
		base, quote string
		want        string
	}{
		{"USD", "EUR", "USDEUR=X"},
		{"EUR", "USD", "EURUSD=X"},
		{"CAD", "JPY", "CADJPY=X"},
	}

	for _, tc := range testCases {
		if got := FXSymbol(tc.base, tc.quote); got != tc.want {
			t.Errorf("FXSymbol(%q, %q) = %q, want %q", tc.base, tc.quote, got, tc.want)
		}
	}
}

func TestNeedsFXSymbol(t *testing.T) {
	testCases := []struct {
		name             string
		accountCurrency  string
		activityCurrency string
		want             bool
	}{
		{"same currency", "USD", "USD", false},
		{"activity currency unset", "CAD", "", false},
		{"account currency unset", "", "EUR", false},
		{"different currencies", "USD", "EUR", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NeedsFXSymbol(tc.accountCurrency, tc.activityCurrency); got != tc.want {
				t.Fatalf("NeedsFXSymbol(%q, %q) = %v, want %v", tc.accountCurrency, tc.activityCurrency, got, tc.want)
			}
		})
	}
}
