package models

import "errors"

// Error taxonomy shared by the stores and services. Controllers map these
// to HTTP responses with errors.Is.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidState       = errors.New("invalid transaction state")
	ErrMissingDestination = errors.New("transaction has no destination number")
	ErrProvider           = errors.New("payment provider error")
	ErrUnrecognized       = errors.New("unrecognized correlation id")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
