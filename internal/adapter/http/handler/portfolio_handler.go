package handler

import (
	"context"
	"net/http"

	"github.com/iho/folio/internal/domain"
)

// PortfolioService defines the behavior needed by PortfolioHandler.
type PortfolioService interface {
	RequestRecalculation(ctx context.Context) domain.RecalculationRequest
}

// PortfolioHandler handles portfolio-wide requests.
type PortfolioHandler struct {
	portfolioUC PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioUC PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioUC: portfolioUC}
}

// Recalculate requests a full recalculation. The request is queued, not
// awaited, so the response is 202 with the emitted payload.
func (h *PortfolioHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	req := h.portfolioUC.RequestRecalculation(r.Context())
	writeJSON(w, http.StatusAccepted, req)
}
