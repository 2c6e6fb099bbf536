package database

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrNotAvailable           = errors.New("space is not available for the selected time")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrAlreadyReviewed        = errors.New("booking already reviewed")
	ErrInvoiceExists          = errors.New("invoice already exists for booking")
)
