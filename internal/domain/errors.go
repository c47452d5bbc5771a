package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	// Activity errors
	ErrActivityNotFound = errors.New("activity not found")

	// Import mapping errors
	ErrImportMappingNotFound = errors.New("import mapping not found")

	// ErrStoreWrite wraps failures reported by the activity store on a write.
	ErrStoreWrite = errors.New("activity store write failed")

	// ErrValidation is the parent of every input validation error.
	ErrValidation = errors.New("validation failed")
)
