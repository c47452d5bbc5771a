package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/folio/internal/adapter/http/dto"
	"github.com/iho/folio/internal/domain"
)

type activityServiceStub struct {
	createFn func(ctx context.Context, input domain.NewActivity) (*domain.Activity, error)
	updateFn func(ctx context.Context, input domain.ActivityUpdate) (*domain.Activity, error)
	deleteFn func(ctx context.Context, id string) (*domain.Activity, error)
	getFn    func(ctx context.Context, id string) (*domain.Activity, error)
	searchFn func(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error)
}

func (s *activityServiceStub) CreateActivity(ctx context.Context, input domain.NewActivity) (*domain.Activity, error) {
	return s.createFn(ctx, input)
}

func (s *activityServiceStub) UpdateActivity(ctx context.Context, input domain.ActivityUpdate) (*domain.Activity, error) {
	return s.updateFn(ctx, input)
}

func (s *activityServiceStub) DeleteActivity(ctx context.Context, id string) (*domain.Activity, error) {
	return s.deleteFn(ctx, id)
}

func (s *activityServiceStub) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	return s.getFn(ctx, id)
}

func (s *activityServiceStub) SearchActivities(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error) {
	return s.searchFn(ctx, filter)
}

type observation struct {
	operation string
	err       error
}

type recordingObserver struct {
	mutations []observation
	imports   []int
}

func (o *recordingObserver) ObserveMutation(operation string, err error, _ time.Duration) {
	o.mutations = append(o.mutations, observation{operation: operation, err: err})
}

func (o *recordingObserver) ObserveImport(rows int) {
	o.imports = append(o.imports, rows)
}

func sampleActivity() *domain.Activity {
	return &domain.Activity{
		ID:           "act-1",
		AccountID:    "acc-1",
		AssetID:      "AAPL",
		ActivityType: domain.ActivityTypeBuy,
		Date:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Quantity:     decimal.NewFromInt(10),
		UnitPrice:    decimal.RequireFromString("187.5"),
		Currency:     "USD",
	}
}

func TestActivityHandler_Create_Success(t *testing.T) {
	var captured domain.NewActivity
	observer := &recordingObserver{}
	handler := NewActivityHandler(&activityServiceStub{
		createFn: func(ctx context.Context, input domain.NewActivity) (*domain.Activity, error) {
			captured = input
			return sampleActivity(), nil
		},
	}, observer)

	body := `{"account_id":"acc-1","asset_id":"AAPL","activity_type":"BUY","date":"2024-03-01T00:00:00Z","quantity":"10","unit_price":"187.5","currency":"USD"}`
	req := httptest.NewRequest(http.MethodPost, "/activities", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.AccountID != "acc-1" || captured.AssetID != "AAPL" || captured.ActivityType != domain.ActivityTypeBuy {
		t.Fatalf("expected input to match request, got %+v", captured)
	}
	if !captured.UnitPrice.Equal(decimal.RequireFromString("187.5")) {
		t.Fatalf("expected unit price 187.5, got %s", captured.UnitPrice)
	}

	var resp dto.ActivityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "act-1" || resp.ActivityType != "BUY" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if len(observer.mutations) != 1 || observer.mutations[0].operation != opCreate || observer.mutations[0].err != nil {
		t.Fatalf("expected one successful create observation, got %+v", observer.mutations)
	}
}

func TestActivityHandler_Create_InvalidJSON(t *testing.T) {
	handler := NewActivityHandler(&activityServiceStub{
		createFn: func(ctx context.Context, input domain.NewActivity) (*domain.Activity, error) {
			t.Fatal("CreateActivity should not be called for invalid payload")
			return nil, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/activities", bytes.NewBufferString("{invalid"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestActivityHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown account", domain.ErrAccountNotFound, http.StatusNotFound},
		{"validation", domain.ErrMissingAsset, http.StatusBadRequest},
		{"store failure", fmt.Errorf("%w: %w", domain.ErrStoreWrite, errors.New("timeout")), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := &recordingObserver{}
			handler := NewActivityHandler(&activityServiceStub{
				createFn: func(ctx context.Context, input domain.NewActivity) (*domain.Activity, error) {
					return nil, tt.err
				},
			}, observer)

			req := httptest.NewRequest(http.MethodPost, "/activities", strings.NewReader(`{"account_id":"acc-1"}`))
			rec := httptest.NewRecorder()

			handler.Create(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}

			var resp dto.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if resp.Error != "failed to create activity" || resp.Message == "" {
				t.Fatalf("expected a descriptive error, got %+v", resp)
			}

			if len(observer.mutations) != 1 || !errors.Is(observer.mutations[0].err, tt.err) {
				t.Fatalf("expected failed observation, got %+v", observer.mutations)
			}
		})
	}
}

func TestActivityHandler_Update_UsesPathID(t *testing.T) {
	var captured domain.ActivityUpdate
	handler := NewActivityHandler(&activityServiceStub{
		updateFn: func(ctx context.Context, input domain.ActivityUpdate) (*domain.Activity, error) {
			captured = input
			a := sampleActivity()
			a.AccountID = input.AccountID
			return a, nil
		},
	}, nil)

	body := `{"id":"ignored","account_id":"acc-2","asset_id":"AAPL","activity_type":"SELL","date":"2024-03-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPut, "/activities/act-1", strings.NewReader(body))
	req = setChiURLParam(req, "id", "act-1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.ID != "act-1" || captured.AccountID != "acc-2" || captured.ActivityType != domain.ActivityTypeSell {
		t.Fatalf("unexpected update input %+v", captured)
	}
}

func TestActivityHandler_Update_NotFound(t *testing.T) {
	handler := NewActivityHandler(&activityServiceStub{
		updateFn: func(ctx context.Context, input domain.ActivityUpdate) (*domain.Activity, error) {
			return nil, domain.ErrActivityNotFound
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPut, "/activities/missing", strings.NewReader(`{}`))
	req = setChiURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestActivityHandler_Delete(t *testing.T) {
	observer := &recordingObserver{}
	handler := NewActivityHandler(&activityServiceStub{
		deleteFn: func(ctx context.Context, id string) (*domain.Activity, error) {
			if id != "act-1" {
				t.Fatalf("expected id act-1, got %s", id)
			}
			return sampleActivity(), nil
		},
	}, observer)

	req := httptest.NewRequest(http.MethodDelete, "/activities/act-1", nil)
	req = setChiURLParam(req, "id", "act-1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(observer.mutations) != 1 || observer.mutations[0].operation != opDelete {
		t.Fatalf("expected delete observation, got %+v", observer.mutations)
	}
}

func TestActivityHandler_Delete_MissingID(t *testing.T) {
	handler := NewActivityHandler(&activityServiceStub{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/activities/", nil)
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestActivityHandler_Get(t *testing.T) {
	handler := NewActivityHandler(&activityServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Activity, error) {
			return sampleActivity(), nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/activities/act-1", nil)
	req = setChiURLParam(req, "id", "act-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestActivityHandler_Search_ParsesFilters(t *testing.T) {
	var captured domain.ActivitySearch
	handler := NewActivityHandler(&activityServiceStub{
		searchFn: func(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error) {
			captured = filter
			return &domain.ActivitySearchResult{
				Activities: []*domain.Activity{sampleActivity()},
				Total:      41,
			}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/activities?account_id=acc-1,acc-2&activity_type=BUY&activity_type=SELL&asset=aap&sort=date&desc=true&limit=10&offset=20", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if len(captured.AccountIDs) != 2 || len(captured.ActivityTypes) != 2 {
		t.Fatalf("expected two accounts and two types, got %+v", captured)
	}
	if captured.AssetKeyword != "aap" || captured.SortBy != "date" || !captured.SortDesc {
		t.Fatalf("unexpected filter %+v", captured)
	}
	if captured.Limit != 10 || captured.Offset != 20 {
		t.Fatalf("expected limit=10 offset=20, got %+v", captured)
	}

	var resp dto.ActivitySearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 41 || len(resp.Activities) != 1 || resp.Limit != 10 || resp.Offset != 20 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestActivityHandler_Search_DefaultPage(t *testing.T) {
	handler := NewActivityHandler(&activityServiceStub{
		searchFn: func(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error) {
			return &domain.ActivitySearchResult{}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	var resp dto.ActivitySearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Limit != domain.DefaultPageSize || resp.Offset != 0 {
		t.Fatalf("expected default page, got limit=%d offset=%d", resp.Limit, resp.Offset)
	}
	if resp.Activities == nil {
		t.Fatal("expected an empty list, not null")
	}
}
