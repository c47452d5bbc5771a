package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iho/folio/internal/adapter/http/handler"
	apimiddleware "github.com/iho/folio/internal/adapter/http/middleware"
	"github.com/iho/folio/internal/domain"
	"github.com/iho/folio/internal/infrastructure/auth"
	"github.com/iho/folio/internal/infrastructure/eventbus"
	"github.com/iho/folio/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.MetricsHandler = promhttp.Handler()
	}))

	// One request so the HTTP collectors have a sample.
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "folio_http_requests_total") {
		t.Fatalf("expected http metrics to be exported")
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"name":"Main","currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
}

func TestNewRouter_AuthProtectsAPI(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.JWTManager = manager
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := manager.Generate("svc", "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to stay public, got %d", rec.Code)
	}
}

func TestNewRouter_RecalculateDispatches(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.PortfolioHandler = handler.NewPortfolioHandler(usecase.NewPortfolioUseCase(dispatcher))
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/portfolio/recalculate", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(dispatcher.requests) != 1 || dispatcher.requests[0].AccountIDs != nil {
		t.Fatalf("expected one unrestricted request, got %+v", dispatcher.requests)
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/accounts/",
		"GET /api/v1/accounts/",
		"GET /api/v1/accounts/{id}",
		"GET /api/v1/accounts/{id}/import-mapping",
		"PUT /api/v1/accounts/{id}/import-mapping",
		"POST /api/v1/accounts/{id}/imports",
		"POST /api/v1/accounts/{id}/imports/check",
		"POST /api/v1/activities/",
		"GET /api/v1/activities/",
		"GET /api/v1/activities/{id}",
		"PUT /api/v1/activities/{id}",
		"DELETE /api/v1/activities/{id}",
		"POST /api/v1/portfolio/recalculate",
		"GET /api/v1/events/ws",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	activities := &stubActivityService{}

	cfg := RouterConfig{
		HealthHandler:    handler.NewHealthHandlerWithChecks(),
		AccountHandler:   handler.NewAccountHandler(&stubAccountService{}),
		ActivityHandler:  handler.NewActivityHandler(activities, nil),
		ImportHandler:    handler.NewImportHandler(activities, nil),
		PortfolioHandler: handler.NewPortfolioHandler(usecase.NewPortfolioUseCase(&recordingDispatcher{})),
		EventsHandler:    handler.NewEventsHandler(eventbus.New(eventbus.Config{})),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubAccountService struct{}

func (stubAccountService) CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*domain.Account, error) {
	return &domain.Account{ID: "acc"}, nil
}

func (stubAccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return &domain.Account{ID: id}, nil
}

func (stubAccountService) ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error) {
	return []*domain.Account{}, nil
}

type stubActivityService struct{}

func (stubActivityService) CreateActivity(ctx context.Context, input domain.NewActivity) (*domain.Activity, error) {
	return &domain.Activity{ID: "act"}, nil
}

func (stubActivityService) UpdateActivity(ctx context.Context, input domain.ActivityUpdate) (*domain.Activity, error) {
	return &domain.Activity{ID: input.ID}, nil
}

func (stubActivityService) DeleteActivity(ctx context.Context, id string) (*domain.Activity, error) {
	return &domain.Activity{ID: id}, nil
}

func (stubActivityService) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	return &domain.Activity{ID: id}, nil
}

func (stubActivityService) SearchActivities(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error) {
	return &domain.ActivitySearchResult{}, nil
}

func (stubActivityService) ImportActivities(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]domain.ActivityImport, error) {
	return rows, nil
}

func (stubActivityService) CheckActivitiesImport(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]domain.ActivityImport, error) {
	return rows, nil
}

func (stubActivityService) GetImportMapping(ctx context.Context, accountID string) (*domain.ImportMapping, error) {
	return domain.DefaultImportMapping(accountID), nil
}

func (stubActivityService) SaveImportMapping(ctx context.Context, mapping domain.ImportMapping) (*domain.ImportMapping, error) {
	return &mapping, nil
}

type recordingDispatcher struct {
	requests []domain.RecalculationRequest
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, req domain.RecalculationRequest) {
	d.requests = append(d.requests, req)
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
