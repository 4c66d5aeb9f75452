package service

import "errors"

var (
	ErrInvalidAmount      = errors.New("amount must be a positive number")
	ErrNotFound           = errors.New("not found")
	ErrVerificationFailed = errors.New("payment signature verification failed")
	ErrInvalidState       = errors.New("payment is not in a state that allows this operation")
)
