package usecase_test

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/iho/folio/internal/domain"
	"github.com/iho/folio/internal/usecase"
	"github.com/iho/folio/internal/usecase/mocks"
)

func TestPortfolioUseCase_RequestRecalculation(t *testing.T) {
	ctrl := gomock.NewController(t)
	dispatcher := mocks.NewMockRecalculationDispatcher(ctrl)

	var got domain.RecalculationRequest
	dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, req domain.RecalculationRequest) { got = req }).
		Times(1)

	req := usecase.NewPortfolioUseCase(dispatcher).RequestRecalculation(context.Background())

	if got.AccountIDs != nil || got.Symbols != nil {
		t.Errorf("expected nil scopes, got accounts=%v symbols=%v", got.AccountIDs, got.Symbols)
	}
	if !got.RefetchAllMarketData || !req.RefetchAllMarketData {
		t.Error("expected refetchAllMarketData")
	}
}
