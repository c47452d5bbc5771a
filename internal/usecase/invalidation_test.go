package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/folio/internal/domain"
	"github.com/iho/folio/internal/usecase"
	"github.com/iho/folio/internal/usecase/mocks"
)

func TestInvalidationResolver_SymbolsForActivity(t *testing.T) {
	tests := []struct {
		name             string
		accountCurrency  string
		activityCurrency string
		assetID          string
		want             []string
	}{
		{
			name:             "foreign currency adds fx cross",
			accountCurrency:  "USD",
			activityCurrency: "EUR",
			assetID:          "AAPL",
			want:             []string{"AAPL", "USDEUR=X"},
		},
		{
			name:             "same currency",
			accountCurrency:  "USD",
			activityCurrency: "USD",
			assetID:          "AAPL",
			want:             []string{"AAPL"},
		},
		{
			name:             "unset activity currency",
			accountCurrency:  "CAD",
			activityCurrency: "",
			assetID:          "CASH",
			want:             []string{"CASH"},
		},
		{
			name:             "account without currency",
			accountCurrency:  "",
			activityCurrency: "EUR",
			assetID:          "SAP",
			want:             []string{"SAP"},
		},
		{
			name:             "empty asset still yields fx cross",
			accountCurrency:  "GBP",
			activityCurrency: "JPY",
			assetID:          "",
			want:             []string{"GBPJPY=X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			accounts := mocks.NewMockAccountLookup(ctrl)
			accounts.EXPECT().
				GetByID(gomock.Any(), "acc-1").
				Return(&domain.Account{ID: "acc-1", Currency: tt.accountCurrency}, nil)

			resolver := usecase.NewInvalidationResolver(accounts)
			got, err := resolver.SymbolsForActivity(context.Background(), "acc-1", tt.activityCurrency, tt.assetID)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidationResolver_SymbolsForActivity_AccountNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountLookup(ctrl)
	accounts.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, domain.ErrAccountNotFound)

	resolver := usecase.NewInvalidationResolver(accounts)
	got, err := resolver.SymbolsForActivity(context.Background(), "missing", "EUR", "AAPL")

	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no symbols, got %v", got)
	}
}

func TestInvalidationResolver_SymbolsForImport(t *testing.T) {
	tests := []struct {
		name string
		rows []domain.ActivityImport
		want []string
	}{
		{
			name: "duplicate rows collapse",
			rows: []domain.ActivityImport{
				{Symbol: "MSFT", Currency: "EUR"},
				{Symbol: "MSFT", Currency: "EUR"},
			},
			want: []string{"MSFT", "USDEUR=X"},
		},
		{
			name: "cash rows contribute only fx",
			rows: []domain.ActivityImport{
				{Symbol: "", Currency: "CHF"},
				{Symbol: "AAPL", Currency: "USD"},
			},
			want: []string{"USDCHF=X", "AAPL"},
		},
		{
			name: "mixed currencies",
			rows: []domain.ActivityImport{
				{Symbol: "SAP", Currency: "EUR"},
				{Symbol: "VOD", Currency: "GBP"},
				{Symbol: "BMW", Currency: "EUR"},
				{Symbol: "IBM"},
			},
			want: []string{"SAP", "USDEUR=X", "VOD", "USDGBP=X", "BMW", "IBM"},
		},
		{
			name: "nothing to invalidate",
			rows: []domain.ActivityImport{
				{Currency: "USD"},
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			accounts := mocks.NewMockAccountLookup(ctrl)
			accounts.EXPECT().
				GetByID(gomock.Any(), "acc-usd").
				Return(&domain.Account{ID: "acc-usd", Currency: "USD"}, nil).
				Times(1)

			resolver := usecase.NewInvalidationResolver(accounts)
			got, err := resolver.SymbolsForImport(context.Background(), "acc-usd", tt.rows)

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidationResolver_SymbolsForImport_AccountNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountLookup(ctrl)
	accounts.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, domain.ErrAccountNotFound)

	resolver := usecase.NewInvalidationResolver(accounts)
	_, err := resolver.SymbolsForImport(context.Background(), "missing", []domain.ActivityImport{{Symbol: "MSFT"}})

	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
