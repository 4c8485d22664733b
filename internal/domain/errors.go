package domain

import "errors"

// Ledger and registry errors. Every one of these aborts the triggering call
// before any state change, so a failed call is always safe to retry.
var (
	ErrInvalidPrice     = errors.New("listing price must be positive")
	ErrInvalidMetadata  = errors.New("metadata URI must not be empty")
	ErrIncorrectFee     = errors.New("attached value does not match the listing fee")
	ErrIncorrectPayment = errors.New("attached value does not match the listing price")
	ErrUnknownItem      = errors.New("unknown item")
	ErrUnknownListing   = errors.New("unknown listing")
	ErrAlreadySold      = errors.New("listing already sold")
	ErrNotAuthorized    = errors.New("not authorized")
)

// ErrNotFound is returned by the store and cache layers for missing rows and
// cache misses.
var ErrNotFound = errors.New("not found")
