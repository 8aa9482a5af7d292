package errs

import "errors"

// Shared sentinels used to classify failures across usecase layers
var (
	// Validation errors
	ErrDomainValidation = errors.New("domain validation error")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
