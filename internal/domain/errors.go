package domain

import "errors"

// Payment validation errors
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrMissingPaymentToken = errors.New("token not provided")
)

// Catalog errors
var (
	ErrProductNotFound = errors.New("product not found")
)
