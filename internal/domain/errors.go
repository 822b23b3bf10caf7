package domain

import "errors"

var (
	// ErrAccountNotFound indicates a referenced account does not exist.
	// Callers must fail fast on it: no fallback, no partial write.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSourceUnavailable indicates the external valuation source was
	// unreachable or timed out. The recorder treats it as transient and
	// falls back to the local asset store.
	ErrSourceUnavailable = errors.New("valuation source unavailable")
)
