package usecase

import (
	"context"
	"time"

	"github.com/iho/folio/internal/domain"
)

// AccountLookup resolves an account's base currency. Implementations must
// return domain.ErrAccountNotFound for unknown ids.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	AccountLookup
	Create(ctx context.Context, account *domain.Account) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// ActivityRepository is the activity store. Every write returns the full
// stored row. Update and Delete return domain.ErrActivityNotFound for
// unknown ids.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.NewActivity) (*domain.Activity, error)
	Update(ctx context.Context, activity *domain.ActivityUpdate) (*domain.Activity, error)
	Delete(ctx context.Context, id string) (*domain.Activity, error)
	GetByID(ctx context.Context, id string) (*domain.Activity, error)
	Search(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error)
	// Import writes all rows for accountID atomically.
	Import(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]domain.ActivityImport, error)
}

// ImportMappingRepository persists per-account import mappings.
type ImportMappingRepository interface {
	Get(ctx context.Context, accountID string) (*domain.ImportMapping, error)
	Save(ctx context.Context, mapping *domain.ImportMapping) error
}

// RecalculationDispatcher hands a recalculation request to whoever listens.
// Dispatch must not block and has no failure mode visible to the caller.
type RecalculationDispatcher interface {
	Dispatch(ctx context.Context, req domain.RecalculationRequest)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release removes a key whose request did not succeed.
	Release(ctx context.Context, key string) error
}
