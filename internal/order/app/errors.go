package app

import "github.com/dwikikusuma/cartflow/pkg/apperr"

var (
	ErrOrderNotFound = apperr.New(apperr.ErrNotFound, "order not found")
	ErrStaleOrder    = apperr.New(apperr.ErrConflict, "order was modified concurrently")
	ErrInvalidInput  = apperr.New(apperr.ErrValidation, "invalid input")
)
