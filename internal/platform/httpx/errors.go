// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
	"github.com/odyssey-erp/erp-console/internal/shared"
)

// RespondError maps local and remote errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var userErr *shared.UserError
	var apiErr *erpapi.Error
	switch {
	case errors.As(err, &userErr):
		Problem(w, http.StatusBadRequest, "Validation Failed", userErr.Error())
	case errors.Is(err, erpapi.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, erpapi.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	case errors.Is(err, erpapi.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
	case errors.As(err, &apiErr):
		Problem(w, http.StatusBadGateway, "Upstream Error", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
