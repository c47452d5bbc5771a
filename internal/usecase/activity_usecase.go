package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/iho/folio/internal/domain"
)

// ActivityUseCase handles activity writes and keeps derived portfolio data
// fresh. Every successful write emits exactly one recalculation request
// naming the accounts and symbols the write made stale.
//
// Update reads the stored row and then writes it in two separate store
// calls. Two racing updates of the same activity can therefore both see the
// same prior account; each still emits the account it wrote, so the race
// produces at worst a redundant invalidation, never a missed one.
type ActivityUseCase struct {
	activityRepo ActivityRepository
	accounts     AccountLookup
	mappingRepo  ImportMappingRepository
	resolver     *InvalidationResolver
	dispatcher   RecalculationDispatcher
	idGen        IDGenerator
}

// NewActivityUseCase creates a new ActivityUseCase.
func NewActivityUseCase(
	activityRepo ActivityRepository,
	accounts AccountLookup,
	mappingRepo ImportMappingRepository,
	dispatcher RecalculationDispatcher,
	idGen IDGenerator,
) *ActivityUseCase {
	return &ActivityUseCase{
		activityRepo: activityRepo,
		accounts:     accounts,
		mappingRepo:  mappingRepo,
		resolver:     NewInvalidationResolver(accounts),
		dispatcher:   dispatcher,
		idGen:        idGen,
	}
}

// CreateActivity stores a new activity and invalidates its account.
func (uc *ActivityUseCase) CreateActivity(ctx context.Context, input domain.NewActivity) (*domain.Activity, error) {
	log.Debug().Str("account_id", input.AccountID).Msg("creating activity")

	if input.ID == "" {
		input.ID = uc.idGen.Generate()
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// Resolving before the write fails fast on an unknown account.
	symbols, err := uc.resolver.SymbolsForActivity(ctx, input.AccountID, input.Currency, input.AssetID)
	if err != nil {
		return nil, err
	}

	activity, err := uc.activityRepo.Create(ctx, &input)
	if err != nil {
		return nil, storeWriteError(err)
	}

	symbols = uc.symbolsForWritten(ctx, activity, resolved{input.AccountID, input.Currency, input.AssetID}, symbols)
	uc.dispatch(ctx, []string{activity.AccountID}, symbols)

	return activity, nil
}

// UpdateActivity rewrites an activity. When the edit moves the activity to
// another account, both the old and the new account are invalidated.
func (uc *ActivityUseCase) UpdateActivity(ctx context.Context, input domain.ActivityUpdate) (*domain.Activity, error) {
	log.Debug().Str("activity_id", input.ID).Msg("updating activity")

	if err := input.Validate(); err != nil {
		return nil, err
	}

	prior, err := uc.activityRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	symbols, err := uc.resolver.SymbolsForActivity(ctx, input.AccountID, input.Currency, input.AssetID)
	if err != nil {
		return nil, err
	}

	activity, err := uc.activityRepo.Update(ctx, &input)
	if err != nil {
		return nil, storeWriteError(err)
	}

	symbols = uc.symbolsForWritten(ctx, activity, resolved{input.AccountID, input.Currency, input.AssetID}, symbols)
	uc.dispatch(ctx, affectedAccounts(activity.AccountID, prior.AccountID), symbols)

	return activity, nil
}

// DeleteActivity removes an activity. Only the deleted asset is
// invalidated; its FX cross is left alone.
func (uc *ActivityUseCase) DeleteActivity(ctx context.Context, id string) (*domain.Activity, error) {
	log.Debug().Str("activity_id", id).Msg("deleting activity")

	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}

	activity, err := uc.activityRepo.Delete(ctx, id)
	if err != nil {
		return nil, storeWriteError(err)
	}

	symbols := make([]string, 0, 1)
	if activity.AssetID != "" {
		symbols = append(symbols, activity.AssetID)
	}
	uc.dispatch(ctx, []string{activity.AccountID}, symbols)

	return activity, nil
}

// ImportActivities writes a batch of rows into accountID. Symbols are
// resolved from the payload before the write, with a single account lookup
// for the whole batch.
func (uc *ActivityUseCase) ImportActivities(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]domain.ActivityImport, error) {
	log.Debug().Str("account_id", accountID).Int("rows", len(rows)).Msg("importing activities")

	if err := domain.ValidateID(accountID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrEmptyImport
	}
	if len(rows) > domain.MaxImportRows {
		return nil, fmt.Errorf("%w: import exceeds %d rows", domain.ErrValidation, domain.MaxImportRows)
	}

	rows = slices.Clone(rows)
	invalid := 0
	for i := range rows {
		rows[i].AccountID = accountID
		if rows[i].ID == "" {
			rows[i].ID = uc.idGen.Generate()
		}
		if rows[i].LineNumber == 0 {
			rows[i].LineNumber = i + 1
		}
		if !rows[i].Check() {
			invalid++
		}
	}
	if invalid > 0 {
		return nil, fmt.Errorf("%w: %d of %d import rows are invalid", domain.ErrValidation, invalid, len(rows))
	}

	symbols, err := uc.resolver.SymbolsForImport(ctx, accountID, rows)
	if err != nil {
		return nil, err
	}

	writeCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	result, err := uc.activityRepo.Import(writeCtx, accountID, rows)
	cancel()
	if err != nil {
		return nil, storeWriteError(err)
	}

	uc.dispatch(ctx, []string{accountID}, symbols)

	return result, nil
}

// CheckActivitiesImport validates import rows for accountID without writing
// anything. Each row comes back with IsValid and Errors filled in.
func (uc *ActivityUseCase) CheckActivitiesImport(ctx context.Context, accountID string, rows []domain.ActivityImport) ([]domain.ActivityImport, error) {
	if err := domain.ValidateID(accountID); err != nil {
		return nil, err
	}

	account, err := uc.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}

	checked := slices.Clone(rows)
	for i := range checked {
		checked[i].AccountID = account.ID
		if checked[i].LineNumber == 0 {
			checked[i].LineNumber = i + 1
		}
		checked[i].Check()
	}

	return checked, nil
}

// GetActivity retrieves an activity by ID.
func (uc *ActivityUseCase) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	return uc.activityRepo.GetByID(ctx, id)
}

// SearchActivities lists activities page by page.
func (uc *ActivityUseCase) SearchActivities(ctx context.Context, filter domain.ActivitySearch) (*domain.ActivitySearchResult, error) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)
	for _, typ := range filter.ActivityTypes {
		if !typ.IsValid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidActivityType, typ)
		}
	}
	return uc.activityRepo.Search(ctx, filter)
}

// GetImportMapping returns the saved mapping for accountID, or the default
// mapping when none was saved.
func (uc *ActivityUseCase) GetImportMapping(ctx context.Context, accountID string) (*domain.ImportMapping, error) {
	if err := domain.ValidateID(accountID); err != nil {
		return nil, err
	}

	mapping, err := uc.mappingRepo.Get(ctx, accountID)
	if errors.Is(err, domain.ErrImportMappingNotFound) {
		return domain.DefaultImportMapping(accountID), nil
	}
	if err != nil {
		return nil, err
	}

	return mapping, nil
}

// SaveImportMapping stores the mapping for an existing account.
func (uc *ActivityUseCase) SaveImportMapping(ctx context.Context, mapping domain.ImportMapping) (*domain.ImportMapping, error) {
	if err := domain.ValidateID(mapping.AccountID); err != nil {
		return nil, err
	}
	if _, err := uc.accounts.GetByID(ctx, mapping.AccountID); err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", mapping.AccountID, err)
	}

	if err := uc.mappingRepo.Save(ctx, &mapping); err != nil {
		return nil, storeWriteError(err)
	}

	return &mapping, nil
}

type resolved struct {
	accountID string
	currency  string
	assetID   string
}

// symbolsForWritten returns the symbols for the stored row. They were
// resolved from the input before the write; if the store normalized any of
// the inputs, they are resolved again from the row. A failed re-resolution
// keeps the pre-write symbols plus the stored asset.
func (uc *ActivityUseCase) symbolsForWritten(ctx context.Context, activity *domain.Activity, from resolved, symbols []string) []string {
	if activity.AccountID == from.accountID && activity.Currency == from.currency && activity.AssetID == from.assetID {
		return symbols
	}

	fresh, err := uc.resolver.SymbolsForActivity(ctx, activity.AccountID, activity.Currency, activity.AssetID)
	if err != nil {
		log.Warn().Err(err).Str("activity_id", activity.ID).Msg("re-resolving symbols after write failed")

		set := newSymbolSet(len(symbols) + 1)
		for _, symbol := range symbols {
			set.add(symbol)
		}
		set.add(activity.AssetID)
		return set.items
	}

	return fresh
}

func (uc *ActivityUseCase) dispatch(ctx context.Context, accountIDs, symbols []string) {
	req := domain.NewRecalculationRequest(accountIDs, symbols, refetchAllMarketData)

	log.Debug().
		Strs("account_ids", req.AccountIDs).
		Strs("symbols", req.Symbols).
		Msg("dispatching portfolio recalculation")

	uc.dispatcher.Dispatch(ctx, req)
}

// affectedAccounts lists the written account, then the prior one if the
// write moved the activity.
func affectedAccounts(current, prior string) []string {
	if prior == "" || prior == current {
		return []string{current}
	}
	return []string{current, prior}
}

func storeWriteError(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
}
