package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/folio/internal/adapter/http/dto"
	"github.com/iho/folio/internal/domain"
)

// ImportService defines the behavior needed by ImportHandler.
type ImportService interface {
	ImportActivities(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]domain.ActivityImport, error)
	CheckActivitiesImport(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]domain.ActivityImport, error)
	GetImportMapping(ctx context.Context, accountID string) (*domain.ImportMapping, error)
	SaveImportMapping(ctx context.Context, mapping domain.ImportMapping) (*domain.ImportMapping, error)
}

// ImportHandler handles batch imports and per-account import mappings.
type ImportHandler struct {
	importUC ImportService
	observer MutationObserver
}

// NewImportHandler creates a new ImportHandler. observer may be nil.
func NewImportHandler(importUC ImportService, observer MutationObserver) *ImportHandler {
	if observer == nil {
		observer = noopObserver{}
	}
	return &ImportHandler{importUC: importUC, observer: observer}
}

// Import writes every row into the account or none of them.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	accountID, req, ok := h.decodeImport(w, r)
	if !ok {
		return
	}

	start := time.Now()
	rows, err := h.importUC.ImportActivities(r.Context(), accountID, req.ToDomain(accountID))
	h.observer.ObserveMutation(opImport, err, time.Since(start))
	if err != nil {
		writeDomainError(w, "failed to import activities", err)
		return
	}
	h.observer.ObserveImport(len(rows))

	writeJSON(w, http.StatusCreated, dto.ImportFromDomain(rows))
}

// Check validates rows without writing them.
func (h *ImportHandler) Check(w http.ResponseWriter, r *http.Request) {
	accountID, req, ok := h.decodeImport(w, r)
	if !ok {
		return
	}

	rows, err := h.importUC.CheckActivitiesImport(r.Context(), accountID, req.ToDomain(accountID))
	if err != nil {
		writeDomainError(w, "failed to check import", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ImportFromDomain(rows))
}

// GetMapping returns the account's import mapping.
func (h *ImportHandler) GetMapping(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	mapping, err := h.importUC.GetImportMapping(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, "failed to get import mapping", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ImportMappingFromDomain(mapping))
}

// SaveMapping replaces the account's import mapping.
func (h *ImportHandler) SaveMapping(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.ImportMappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	mapping, err := h.importUC.SaveImportMapping(r.Context(), req.ToDomain(accountID))
	if err != nil {
		writeDomainError(w, "failed to save import mapping", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ImportMappingFromDomain(mapping))
}

func (h *ImportHandler) decodeImport(w http.ResponseWriter, r *http.Request) (string, dto.ImportActivitiesRequest, bool) {
	var req dto.ImportActivitiesRequest

	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return "", req, false
	}

	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return "", req, false
	}

	return accountID, req, true
}
