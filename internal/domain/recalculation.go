package domain

import "slices"

// EventTypePortfolioRecalculate is the broadcast topic for recalculation requests.
const EventTypePortfolioRecalculate = "portfolio:trigger-recalculate"

// RecalculationRequest asks the recomputation pipeline to refresh derived data.
// A nil AccountIDs or Symbols means "not restricted". Build it with
// NewRecalculationRequest; the slices are never shared with the caller.
type RecalculationRequest struct {
	AccountIDs           []string `json:"accountIds"`
	Symbols              []string `json:"symbols"`
	RefetchAllMarketData bool     `json:"refetchAllMarketData"`
}

// NewRecalculationRequest snapshots accountIDs and symbols into a new request.
func NewRecalculationRequest(accountIDs, symbols []string, refetchAll bool) RecalculationRequest {
	return RecalculationRequest{
		AccountIDs:           slices.Clone(accountIDs),
		Symbols:              slices.Clone(symbols),
		RefetchAllMarketData: refetchAll,
	}
}

// Clone returns a deep copy so subscribers cannot observe each other's edits.
func (r RecalculationRequest) Clone() RecalculationRequest {
	return NewRecalculationRequest(r.AccountIDs, r.Symbols, r.RefetchAllMarketData)
}
