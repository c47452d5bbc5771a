package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/folio/internal/domain"
)

const activityColumns = `id, account_id, asset_id, activity_type, activity_date, quantity, unit_price, fee, amount, currency, comment, is_draft, created_at, updated_at`

var activityCopyColumns = []string{
	"id", "account_id", "asset_id", "activity_type", "activity_date", "quantity", "unit_price",
	"fee", "amount", "currency", "comment", "is_draft", "created_at", "updated_at",
}

// Sortable columns exposed to search callers.
var activitySortColumns = map[string]string{
	"":             "activity_date",
	"date":         "activity_date",
	"activityType": "activity_type",
	"assetId":      "asset_id",
	"createdAt":    "created_at",
}

// ActivityRepository implements usecase.ActivityRepository.
type ActivityRepository struct {
	db      pgxPool
	tx      *TxManager
	retrier *Retrier
	now     func() time.Time
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool, retrier *Retrier) *ActivityRepository {
	return newActivityRepositoryWithPool(pool, retrier)
}

func newActivityRepositoryWithPool(pool pgxPool, retrier *Retrier) *ActivityRepository {
	if retrier == nil {
		retrier = NewRetrier()
	}
	return &ActivityRepository{
		db:      pool,
		tx:      newTxManagerWithPool(pool),
		retrier: retrier,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new activity and returns the stored row.
func (r *ActivityRepository) Create(ctx context.Context, a *domain.NewActivity) (*domain.Activity, error) {
	now := timeToPgTimestamptz(r.now())

	var activity *domain.Activity
	err := r.retrier.Retry(ctx, func() error {
		row := r.db.QueryRow(ctx, `
			INSERT INTO activities (`+activityColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
			RETURNING `+activityColumns,
			a.ID,
			a.AccountID,
			a.AssetID,
			string(a.ActivityType),
			timeToPgTimestamptz(a.Date),
			decimalToNumeric(a.Quantity),
			decimalToNumeric(a.UnitPrice),
			decimalToNumeric(a.Fee),
			decimalPtrToNumeric(a.Amount),
			a.Currency,
			a.Comment,
			a.IsDraft,
			now,
		)

		var err error
		activity, err = scanActivity(row)
		return err
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	return activity, nil
}

// Update replaces the mutable fields of an activity.
func (r *ActivityRepository) Update(ctx context.Context, a *domain.ActivityUpdate) (*domain.Activity, error) {
	var activity *domain.Activity
	err := r.retrier.Retry(ctx, func() error {
		row := r.db.QueryRow(ctx, `
			UPDATE activities SET
				account_id = $2,
				asset_id = $3,
				activity_type = $4,
				activity_date = $5,
				quantity = $6,
				unit_price = $7,
				fee = $8,
				amount = $9,
				currency = $10,
				comment = $11,
				is_draft = $12,
				updated_at = $13
			WHERE id = $1
			RETURNING `+activityColumns,
			a.ID,
			a.AccountID,
			a.AssetID,
			string(a.ActivityType),
			timeToPgTimestamptz(a.Date),
			decimalToNumeric(a.Quantity),
			decimalToNumeric(a.UnitPrice),
			decimalToNumeric(a.Fee),
			decimalPtrToNumeric(a.Amount),
			a.Currency,
			a.Comment,
			a.IsDraft,
			timeToPgTimestamptz(r.now()),
		)

		var err error
		activity, err = scanActivity(row)
		return err
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	return activity, nil
}

// Delete removes an activity and returns the row as it was.
func (r *ActivityRepository) Delete(ctx context.Context, id string) (*domain.Activity, error) {
	var activity *domain.Activity
	err := r.retrier.Retry(ctx, func() error {
		row := r.db.QueryRow(ctx, `DELETE FROM activities WHERE id = $1 RETURNING `+activityColumns, id)

		var err error
		activity, err = scanActivity(row)
		return err
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	return activity, nil
}

// GetByID retrieves an activity by ID.
func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)

	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, err
	}

	return activity, nil
}

// Search returns one page of activities matching filter plus the total
// number of matches.
func (r *ActivityRepository) Search(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error) {
	orderBy, ok := activitySortColumns[filter.SortBy]
	if !ok {
		return nil, fmt.Errorf("%w: cannot sort by %q", domain.ErrValidation, filter.SortBy)
	}

	where, args := activitySearchWhere(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM activities`+where, args...).Scan(&total); err != nil {
		return nil, err
	}
	direction := "ASC"
	if filter.SortDesc || filter.SortBy == "" {
		direction = "DESC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM activities%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		activityColumns, where, orderBy, direction, direction, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &domain.ActivitySearchResult{
		Activities: make([]*domain.Activity, 0, filter.Limit),
		Total:      total,
	}
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		result.Activities = append(result.Activities, activity)
	}

	return result, rows.Err()
}

// Import writes every row in one transaction. The account row is locked
// FOR SHARE so it cannot be deleted halfway through the batch.
func (r *ActivityRepository) Import(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]domain.ActivityImport, error) {
	now := timeToPgTimestamptz(r.now())

	err := r.retrier.Retry(ctx, func() error {
		return r.tx.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
			var locked string
			err := tx.PgxTx().QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR SHARE`, accountID).Scan(&locked)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrAccountNotFound
				}
				return err
			}

			copied, err := tx.PgxTx().CopyFrom(ctx,
				pgx.Identifier{"activities"},
				activityCopyColumns,
				pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
					row := rows[i]
					return []any{
						row.ID,
						accountID,
						row.Symbol,
						string(row.ActivityType),
						timeToPgTimestamptz(row.Date),
						decimalToNumeric(row.Quantity),
						decimalToNumeric(row.UnitPrice),
						decimalToNumeric(row.Fee),
						decimalPtrToNumeric(row.Amount),
						row.Currency,
						row.Comment,
						row.IsDraft,
						now,
						now,
					}, nil
				}),
			)
			if err != nil {
				return err
			}
			if copied != int64(len(rows)) {
				return fmt.Errorf("imported %d of %d rows", copied, len(rows))
			}
			return nil
		})
	})
	if err != nil {
		return nil, translateWriteError(err)
	}

	return rows, nil
}

func activitySearchWhere(filter domain.ActivitySearch) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if len(filter.AccountIDs) > 0 {
		args = append(args, filter.AccountIDs)
		clauses = append(clauses, fmt.Sprintf("account_id = ANY($%d)", len(args)))
	}
	if len(filter.ActivityTypes) > 0 {
		types := make([]string, len(filter.ActivityTypes))
		for i, t := range filter.ActivityTypes {
			types[i] = string(t)
		}
		args = append(args, types)
		clauses = append(clauses, fmt.Sprintf("activity_type = ANY($%d)", len(args)))
	}
	if keyword := strings.TrimSpace(filter.AssetKeyword); keyword != "" {
		args = append(args, "%"+escapeLike(keyword)+"%")
		clauses = append(clauses, fmt.Sprintf("asset_id ILIKE $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// translateWriteError maps driver errors onto domain errors where one exists.
func translateWriteError(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrActivityNotFound
	case pgErrorCode(err) == pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %w", domain.ErrAccountNotFound, err)
	}
	return err
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var (
		a                                domain.Activity
		activityType                     string
		date, createdAt, updatedAt       pgtype.Timestamptz
		quantity, unitPrice, fee, amount pgtype.Numeric
	)

	if err := row.Scan(
		&a.ID,
		&a.AccountID,
		&a.AssetID,
		&activityType,
		&date,
		&quantity,
		&unitPrice,
		&fee,
		&amount,
		&a.Currency,
		&a.Comment,
		&a.IsDraft,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	a.ActivityType = domain.ActivityType(activityType)
	a.Date = date.Time
	a.Quantity = numericToDecimal(quantity)
	a.UnitPrice = numericToDecimal(unitPrice)
	a.Fee = numericToDecimal(fee)
	a.Amount = numericToDecimalPtr(amount)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}
