package storage

import "errors"

var (
	// ErrNotFound is returned when no record exists for the given DRPID.
	ErrNotFound = errors.New("record does not exist")
	// ErrDuplicateURL is returned by Create when the source URL is already
	// present in the projects table.
	ErrDuplicateURL = errors.New("source_url already exists")
	// ErrImmutableField is returned by Update when the caller tries to set
	// DRPID or source_url.
	ErrImmutableField = errors.New("cannot update DRPID or source_url")
	// ErrInvalidField is returned for column names outside the projects
	// schema, or by AppendToField for fields other than warnings/errors.
	ErrInvalidField = errors.New("invalid field")
)
