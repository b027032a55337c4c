package domain

import "errors"

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrForbidden       = errors.New("action forbidden")
	ErrEmptyFile       = errors.New("file is empty")
)
