package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in issuance terms, not HTTP terms.
type Code string

const (
	CodeNotFound   Code = "not_found"
	CodeBadRequest Code = "bad_request"
	CodeValidation Code = "validation_failed"
	CodeInternal   Code = "internal_error"
	CodeConflict   Code = "conflict"

	// Issuance error codes. Every failure a mint or admin call can surface
	// maps to exactly one of these; the message carries the stable reason
	// string shown to callers.
	CodeUnauthorized         Code = "unauthorized"           // caller is not the admin
	CodeInvalidVoucher       Code = "invalid_voucher"        // signature does not recover to a validator
	CodeSignatureExpired     Code = "signature_expired"      // voucher deadline passed
	CodeAlreadyMinted        Code = "already_minted"         // name collision
	CodeFreeMintUsed         Code = "free_mint_used"         // pass discount already consumed
	CodeNoGenesisPass        Code = "no_genesis_pass"        // account holds no pass record
	CodeInsufficientFee      Code = "insufficient_fee"       // attached payment below required fee
	CodeStageCapExceeded     Code = "stage_cap_exceeded"     // current stage is sold out
	CodeTotalCapExceeded     Code = "total_cap_exceeded"     // collection is sold out
	CodeCapExceedsTotal      Code = "cap_exceeds_total"      // admin misconfiguration
	CodeMaxPerAccountReached Code = "max_per_account_reached" // pass per-account limit hit
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
