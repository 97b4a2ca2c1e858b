package treasury

import "errors"

var (
	ErrInvalidAllocation    = errors.New("treasury: allocation must cover all buckets and sum to 10000 bps")
	ErrInvalidAmount        = errors.New("treasury: amount must be positive")
	ErrUnknownBucket        = errors.New("treasury: unknown bucket")
	ErrInsufficientBalance  = errors.New("treasury: bucket balance too low")
	ErrWithdrawLimit        = errors.New("treasury: daily withdrawal cap exceeded")
	ErrBurnNotWithdrawable  = errors.New("treasury: burn bucket cannot be withdrawn")
)
