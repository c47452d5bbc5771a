package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/folio/internal/adapter/http/dto"
	"github.com/iho/folio/internal/domain"
)

// ActivityService defines the behavior needed by ActivityHandler.
type ActivityService interface {
	CreateActivity(ctx context.Context, input domain.NewActivity) (*domain.Activity, error)
	UpdateActivity(ctx context.Context, input domain.ActivityUpdate) (*domain.Activity, error)
	DeleteActivity(ctx context.Context, id string) (*domain.Activity, error)
	GetActivity(ctx context.Context, id string) (*domain.Activity, error)
	SearchActivities(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error)
}

// MutationObserver records the outcome of activity writes.
type MutationObserver interface {
	ObserveMutation(operation string, err error, elapsed time.Duration)
	ObserveImport(rows int)
}

type noopObserver struct{}

func (noopObserver) ObserveMutation(string, error, time.Duration) {}
func (noopObserver) ObserveImport(int)                            {}

// Mutation operation labels.
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opImport = "import"
)

// ActivityHandler handles activity-related HTTP requests.
type ActivityHandler struct {
	activityUC ActivityService
	observer   MutationObserver
}

// NewActivityHandler creates a new ActivityHandler. observer may be nil.
func NewActivityHandler(activityUC ActivityService, observer MutationObserver) *ActivityHandler {
	if observer == nil {
		observer = noopObserver{}
	}
	return &ActivityHandler{activityUC: activityUC, observer: observer}
}

// Create stores a new activity.
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	start := time.Now()
	activity, err := h.activityUC.CreateActivity(r.Context(), req.ToNewActivity())
	h.observer.ObserveMutation(opCreate, err, time.Since(start))
	if err != nil {
		writeDomainError(w, "failed to create activity", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ActivityFromDomain(activity))
}

// Get retrieves an activity by ID.
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing activity ID", "")
		return
	}

	activity, err := h.activityUC.GetActivity(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get activity", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ActivityFromDomain(activity))
}

// Update replaces an activity.
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing activity ID", "")
		return
	}

	var req dto.ActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	start := time.Now()
	activity, err := h.activityUC.UpdateActivity(r.Context(), req.ToActivityUpdate(id))
	h.observer.ObserveMutation(opUpdate, err, time.Since(start))
	if err != nil {
		writeDomainError(w, "failed to update activity", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ActivityFromDomain(activity))
}

// Delete removes an activity and returns the removed row.
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing activity ID", "")
		return
	}

	start := time.Now()
	activity, err := h.activityUC.DeleteActivity(r.Context(), id)
	h.observer.ObserveMutation(opDelete, err, time.Since(start))
	if err != nil {
		writeDomainError(w, "failed to delete activity", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ActivityFromDomain(activity))
}

// Search lists activities. Filters: account_id and activity_type (repeated
// or comma separated), asset, sort, desc, limit, offset.
func (h *ActivityHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter := domain.ActivitySearch{
		AccountIDs:   parseListQuery(r, "account_id"),
		AssetKeyword: r.URL.Query().Get("asset"),
		SortBy:       r.URL.Query().Get("sort"),
		Limit:        parseIntQuery(r, "limit", 0),
		Offset:       parseIntQuery(r, "offset", 0),
	}
	for _, typ := range parseListQuery(r, "activity_type") {
		filter.ActivityTypes = append(filter.ActivityTypes, domain.ActivityType(typ))
	}
	if desc, err := strconv.ParseBool(r.URL.Query().Get("desc")); err == nil {
		filter.SortDesc = desc
	}

	result, err := h.activityUC.SearchActivities(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "failed to search activities", err)
		return
	}

	limit, offset := domain.ValidatePagination(filter.Limit, filter.Offset)
	writeJSON(w, http.StatusOK, dto.ActivitySearchFromDomain(result, limit, offset))
}
