package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/folio/internal/domain"
)

// ImportMappingRepository implements usecase.ImportMappingRepository. The
// three mapping tables are stored as JSONB columns.
type ImportMappingRepository struct {
	db  querier
	now func() time.Time
}

// NewImportMappingRepository creates a new ImportMappingRepository.
func NewImportMappingRepository(pool *pgxpool.Pool) *ImportMappingRepository {
	return newImportMappingRepositoryWithDB(pool)
}

func newImportMappingRepositoryWithDB(db querier) *ImportMappingRepository {
	return &ImportMappingRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the mapping saved for accountID.
func (r *ImportMappingRepository) Get(ctx context.Context, accountID string) (*domain.ImportMapping, error) {
	var (
		fields, activities, symbols []byte
		updatedAt                   pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, `
		SELECT field_mappings, activity_mappings, symbol_mappings, updated_at
		FROM import_mappings
		WHERE account_id = $1`,
		accountID,
	).Scan(&fields, &activities, &symbols, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrImportMappingNotFound
		}
		return nil, err
	}

	mapping := &domain.ImportMapping{
		AccountID: accountID,
		UpdatedAt: updatedAt.Time,
	}
	if err := unmarshalMappings(fields, activities, symbols, mapping); err != nil {
		return nil, fmt.Errorf("failed to decode import mapping for %s: %w", accountID, err)
	}

	return mapping, nil
}

// Save upserts the mapping and stamps its UpdatedAt.
func (r *ImportMappingRepository) Save(ctx context.Context, mapping *domain.ImportMapping) error {
	fields, err := marshalJSONB(mapping.FieldMappings, map[string]string{})
	if err != nil {
		return err
	}
	activities, err := marshalJSONB(mapping.ActivityMappings, map[string][]string{})
	if err != nil {
		return err
	}
	symbols, err := marshalJSONB(mapping.SymbolMappings, map[string]string{})
	if err != nil {
		return err
	}

	mapping.UpdatedAt = r.now()

	_, err = r.db.Exec(ctx, `
		INSERT INTO import_mappings (account_id, field_mappings, activity_mappings, symbol_mappings, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE SET
			field_mappings = EXCLUDED.field_mappings,
			activity_mappings = EXCLUDED.activity_mappings,
			symbol_mappings = EXCLUDED.symbol_mappings,
			updated_at = EXCLUDED.updated_at`,
		mapping.AccountID,
		fields,
		activities,
		symbols,
		timeToPgTimestamptz(mapping.UpdatedAt),
	)
	if err != nil {
		if pgErrorCode(err) == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: %w", domain.ErrAccountNotFound, err)
		}
		return err
	}

	return nil
}

// marshalJSONB encodes v, substituting empty when v is a nil map so the
// column never holds JSON null.
func marshalJSONB[M ~map[string]V, V any](v M, empty M) (string, error) {
	if v == nil {
		v = empty
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMappings(fields, activities, symbols []byte, mapping *domain.ImportMapping) error {
	if err := json.Unmarshal(fields, &mapping.FieldMappings); err != nil {
		return err
	}
	if err := json.Unmarshal(activities, &mapping.ActivityMappings); err != nil {
		return err
	}
	return json.Unmarshal(symbols, &mapping.SymbolMappings)
}
