package staking

import "errors"

var (
	ErrPaused              = errors.New("staking: staking paused")
	ErrInvalidTier         = errors.New("staking: tier outside configured range")
	ErrStakeExists         = errors.New("staking: address already has an open position")
	ErrInsufficientStake   = errors.New("staking: amount below tier minimum")
	ErrInsufficientBalance = errors.New("staking: insufficient balance")
	ErrPositionNotFound    = errors.New("staking: position not found")
	ErrClaimTooSoon        = errors.New("staking: claim interval not elapsed")
	ErrLockActive          = errors.New("staking: lock period active")
	ErrCooldownActive      = errors.New("staking: cooldown active")
	ErrInvalidTopUp        = errors.New("staking: top-up must exactly cover the tier shortfall")
)
