package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running imports from blocking tables
	DefaultTransactionTimeout = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// refetchAllMarketData is set on every request emitted by a mutation.
	refetchAllMarketData = true
)
