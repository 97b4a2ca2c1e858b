package token

import "errors"

var (
	ErrUnauthorized        = errors.New("token: caller not authorised")
	ErrPaused              = errors.New("token: transfers paused")
	ErrInvalidAmount       = errors.New("token: amount must be positive")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrCooldownActive      = errors.New("token: sender cooldown active")
	ErrDailyLimitExceeded  = errors.New("token: daily volume cap exceeded")
	ErrInvalidTaxRate      = errors.New("token: tax rate above maximum")
)
