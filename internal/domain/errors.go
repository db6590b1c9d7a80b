package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrIllegalTransition  = errors.New("illegal chain transition")
	ErrProviderFailure    = errors.New("provider failure")
	ErrInsufficientImages = errors.New("product has fewer than 2 images")
	ErrInvalidCadence     = errors.New("cadence must be greater than zero")
	ErrPoolExhausted      = errors.New("no active products available")
)
