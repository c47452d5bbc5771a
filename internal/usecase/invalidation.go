package usecase

import (
	"context"
	"fmt"

	"github.com/iho/folio/internal/domain"
)

// InvalidationResolver works out which market-data symbols go stale when an
// activity is written. An activity always invalidates its own asset; when
// its currency differs from the owning account's currency the FX cross
// between the two is invalidated as well.
//
// The account is looked up on every call and never cached.
type InvalidationResolver struct {
	accounts AccountLookup
}

// NewInvalidationResolver creates a new InvalidationResolver.
func NewInvalidationResolver(accounts AccountLookup) *InvalidationResolver {
	return &InvalidationResolver{accounts: accounts}
}

// SymbolsForActivity returns the asset id followed by the FX symbol, if any.
func (r *InvalidationResolver) SymbolsForActivity(ctx context.Context, accountID, activityCurrency, assetID string) ([]string, error) {
	accountCurrency, err := r.accountCurrency(ctx, accountID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, 2)
	if assetID != "" {
		symbols = append(symbols, assetID)
	}
	if domain.NeedsFXSymbol(accountCurrency, activityCurrency) {
		symbols = append(symbols, domain.FXSymbol(accountCurrency, activityCurrency))
	}

	return symbols, nil
}

// SymbolsForImport returns the deduplicated symbols touched by a batch of
// import rows destined for accountID. Rows without a symbol are cash
// movements and contribute only their FX symbol. The result keeps first-seen
// order.
func (r *InvalidationResolver) SymbolsForImport(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]string, error) {
	accountCurrency, err := r.accountCurrency(ctx, accountID)
	if err != nil {
		return nil, err
	}

	set := newSymbolSet(len(rows))
	for i := range rows {
		set.add(rows[i].Symbol)
		if domain.NeedsFXSymbol(accountCurrency, rows[i].Currency) {
			set.add(domain.FXSymbol(accountCurrency, rows[i].Currency))
		}
	}

	return set.items, nil
}

func (r *InvalidationResolver) accountCurrency(ctx context.Context, accountID string) (string, error) {
	account, err := r.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("failed to get account %s: %w", accountID, err)
	}

	return account.Currency, nil
}

type symbolSet struct {
	seen  map[string]struct{}
	items []string
}

func newSymbolSet(capacity int) *symbolSet {
	return &symbolSet{
		seen:  make(map[string]struct{}, capacity),
		items: make([]string, 0, capacity),
	}
}

func (s *symbolSet) add(symbol string) {
	if symbol == "" {
		return
	}
	if _, ok := s.seen[symbol]; ok {
		return
	}
	s.seen[symbol] = struct{}{}
	s.items = append(s.items, symbol)
}
