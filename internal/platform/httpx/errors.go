package httpx

import (
	"errors"
	"net/http"

	"github.com/camcamberst/iam-sistema-de-gestion-sub002/internal/shared"
)

// RespondError maps the service error taxonomy to HTTP problem responses.
// Unknown errors deliberately hide their detail from API consumers.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrRateNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrIncompleteRateSet):
		Problem(w, http.StatusUnprocessableEntity, "Incomplete Rate Set", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrPeriodNotClosed):
		Problem(w, http.StatusConflict, "Period Not Archived", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrPeriodArchived):
		Problem(w, http.StatusConflict, "Period Archived", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrInvalidPeriodTransition):
		Problem(w, http.StatusConflict, "Invalid Period Transition", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrLockHeld):
		Problem(w, http.StatusConflict, "Operation In Progress", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrOutsideRequestWindow):
		Problem(w, http.StatusUnprocessableEntity, "Outside Request Window", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrCapabilityDenied):
		Problem(w, http.StatusForbidden, "Forbidden", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
