package service

import "errors"

var (
	// ErrEmptyDocument is returned for a submission without content
	ErrEmptyDocument = errors.New("empty document")

	// ErrExtractionIncomplete marks an invoice stored without every required field
	ErrExtractionIncomplete = errors.New("extraction incomplete")

	// ErrPrimaryStore marks a failed write to the system of record
	ErrPrimaryStore = errors.New("primary store failure")

	// ErrSecondaryStore marks a staging write that was deferred
	ErrSecondaryStore = errors.New("secondary store failure")
)
