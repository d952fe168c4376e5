package repository

import "errors"

var (
	// ErrNotFound is returned when a query matches no row.
	ErrNotFound = errors.New("not found")

	// ErrSerializePayload is returned when a certificate payload cannot be
	// converted to or from its persisted JSON form. It is distinct from
	// query failures so callers can tell a bad payload from a bad connection.
	ErrSerializePayload = errors.New("failed to serialize certificate payload")
)
