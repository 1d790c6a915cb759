package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when the addressed entity does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with an existing row
	// (duplicate unique key, repeated reaction of the same kind).
	ErrConflict = errors.New("conflict")
)
