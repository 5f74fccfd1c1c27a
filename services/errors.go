package services

import (
	"errors"

	"fantasy12/apperr"
	"fantasy12/store"
)

// fromStore maps store failures onto application errors. notFound is the
// message used when the record does not exist.
func fromStore(err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("%s", notFound)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict("%s", conflict)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal("storage failure", err)
}
