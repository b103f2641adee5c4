package app

import "github.com/dwikikusuma/cartflow/pkg/apperr"

var (
	ErrCartNotFound        = apperr.New(apperr.ErrNotFound, "cart not found")
	ErrProductNotFound     = apperr.New(apperr.ErrNotFound, "product not found")
	ErrDuplicateCart       = apperr.New(apperr.ErrConflict, "cart already exists")
	ErrStaleCart           = apperr.New(apperr.ErrConflict, "cart was modified concurrently")
	ErrEmptyCart           = apperr.New(apperr.ErrValidation, "cart is empty")
	ErrNoMatchingProduct   = apperr.New(apperr.ErrValidation, "product does not belong to the cart")
	ErrInvalidInput        = apperr.New(apperr.ErrValidation, "invalid input")
	ErrUpstreamUnavailable = apperr.New(apperr.ErrUnavailable, "communication error with product service")
)
