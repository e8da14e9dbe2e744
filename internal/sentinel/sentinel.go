package sentinel

import "errors"

// Sentinel dependency errors. Stores and the ledger return these (optionally
// wrapped) so services can translate them into domain errors exactly once.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyUsed       = errors.New("already used")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidInput      = errors.New("invalid input")
)
