// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian/internal/ledger/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
		return
	}

	switch {
	case errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, shared.ErrEntryNotFound),
		errors.Is(err, shared.ErrYearNotFound),
		errors.Is(err, shared.ErrMappingNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())

	case errors.Is(err, shared.ErrDuplicateCode),
		errors.Is(err, shared.ErrDuplicateName),
		errors.Is(err, shared.ErrDuplicateEntryNumber),
		errors.Is(err, shared.ErrSourceAlreadyLinked),
		errors.Is(err, shared.ErrPeriodClosed),
		errors.Is(err, shared.ErrAlreadyClosed),
		errors.Is(err, shared.ErrHasChildren),
		errors.Is(err, shared.ErrReferenced),
		errors.Is(err, shared.ErrIsCurrentYear),
		errors.Is(err, shared.ErrHasEntries):
		Problem(w, http.StatusConflict, "Conflict", err.Error())

	case errors.Is(err, shared.ErrUnknownAccount),
		errors.Is(err, shared.ErrDateOutOfPeriod),
		errors.Is(err, shared.ErrNoActiveYear),
		errors.Is(err, shared.ErrNoRetainedEarnings):
		Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())

	case errors.Is(err, shared.ErrSameAccount),
		errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrInvalidParent),
		errors.Is(err, shared.ErrSelfParent),
		errors.Is(err, shared.ErrInvalidRange),
		errors.Is(err, shared.ErrConfirmRequired):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())

	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
