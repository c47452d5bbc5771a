package usecase

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/iho/folio/internal/domain"
)

// PortfolioUseCase triggers recalculation outside the activity write path.
type PortfolioUseCase struct {
	dispatcher RecalculationDispatcher
}

// NewPortfolioUseCase creates a new PortfolioUseCase.
func NewPortfolioUseCase(dispatcher RecalculationDispatcher) *PortfolioUseCase {
	return &PortfolioUseCase{dispatcher: dispatcher}
}

// RequestRecalculation asks for a full recalculation of every account with
// fresh market data. Nil account and symbol lists mean "all".
func (uc *PortfolioUseCase) RequestRecalculation(ctx context.Context) domain.RecalculationRequest {
	req := domain.NewRecalculationRequest(nil, nil, refetchAllMarketData)

	log.Debug().Msg("dispatching full portfolio recalculation")
	uc.dispatcher.Dispatch(ctx, req)

	return req
}
