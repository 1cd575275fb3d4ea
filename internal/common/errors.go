// Package common holds sentinel errors shared between repositories, services and handlers.
package common

import "errors"

var (
	// repository specific errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFile        = errors.New("missing file")
)
