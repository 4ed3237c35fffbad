package entities

import "errors"

var (
	ErrEmptyUserID             = errors.New("user id cannot be empty")
	ErrEmptyConceptText        = errors.New("concept text cannot be empty")
	ErrSessionNotPending       = errors.New("recall session is not pending")
	ErrImportAlreadyTerminated = errors.New("import has already finished")
	ErrInvalidScore            = errors.New("score must be between 0 and 100")
)
