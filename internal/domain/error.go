package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Redeem ledger errors
	ErrSelfRedeem      = errors.New("cannot redeem your own code")
	ErrCodeExpired     = errors.New("redeem code has expired")
	ErrAlreadyRedeemed = errors.New("redeem code already used by this user")

	// Payment reconciliation
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// Job coordination
	ErrLockBusy = errors.New("job lock is held elsewhere")

	// Storage-layer errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid query execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
