package multisig

import "errors"

var (
	ErrUnauthorized   = errors.New("multisig: caller is not an authority")
	ErrActionNotFound = errors.New("multisig: action not found")
	ErrActionNotReady = errors.New("multisig: action not ready")
	ErrKindMismatch   = errors.New("multisig: action kind mismatch")
	ErrInvalidPolicy  = errors.New("multisig: invalid policy")
)
