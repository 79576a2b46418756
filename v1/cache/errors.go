package cache

import "errors"

var (
	// ErrInvalidStoreType is returned by NewStore for an unknown store type.
	ErrInvalidStoreType = errors.New("cache: invalid store type")

	// ErrInvalidConfig is returned when a store lacks a required option.
	ErrInvalidConfig = errors.New("cache: invalid store configuration")
)
