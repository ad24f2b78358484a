package listing

import "errors"

var (
	// ErrBusy is returned when a save is already in flight.
	ErrBusy = errors.New("a save is already in progress")

	// ErrNotFound is returned when no loaded record has the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrNoEditor is returned by edit operations when no editor is open.
	ErrNoEditor = errors.New("no record is being edited")

	// ErrNotEditable is returned for fields outside the dataset's editable set.
	ErrNotEditable = errors.New("field is not editable")

	// ErrUnknownFilter is returned for filter names the dataset does not declare.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrMissingKey is returned when a save echo lacks the identity field.
	ErrMissingKey = errors.New("server response is missing the record key")
)
