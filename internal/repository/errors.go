package repository

import "errors"

// Not-found errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrArtworkNotFound      = errors.New("artwork not found")
	ErrBuyerNotFound        = errors.New("buyer not found")
	ErrSellerNotFound       = errors.New("seller not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Unique-constraint violations
var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateImage    = errors.New("image already published")
)

// Purchase business-rule violations, detected under row locks
var (
	ErrArtworkUnavailable = errors.New("artwork is not available")
	ErrSelfPurchase       = errors.New("cannot purchase your own artwork")
	ErrInsufficientFunds  = errors.New("insufficient funds")
)

// ErrConcurrencyConflict is returned when a purchase loses to concurrent
// transactions past the retry budget, or waits on a row lock longer than the
// configured timeout. Retryable by the client.
var ErrConcurrencyConflict = errors.New("concurrency conflict, try again")
