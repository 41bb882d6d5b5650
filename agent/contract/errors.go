package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// ErrParse marks a completion whose content cannot be coerced to the requested shape.
	ErrParse = errors.New("structured completion parse failure")
	// ErrTransport marks a remote call that did not complete.
	ErrTransport = errors.New("remote call did not complete")

	ErrSchemaLoad    = errors.New("action schema load failed")
	ErrEmptyCatalog  = errors.New("action catalog is empty")
	ErrUnknownAction = errors.New("unknown action")
)
