package models

import "errors"

// Custom errors
var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateKey        = errors.New("duplicate key violation")
	ErrInvalidID           = errors.New("invalid ID format")
	ErrMalformedRaceID     = errors.New("malformed race identifier")
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
)
