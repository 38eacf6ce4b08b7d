package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidPrice       = errors.New("price must not be negative")
)
