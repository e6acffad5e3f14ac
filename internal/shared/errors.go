package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrRateNotFound indicates no applicable rate exists for a scope/kind at the requested instant.
	ErrRateNotFound = errors.New("rate not found")
	// ErrIncompleteRateSet indicates a correction request omitted at least one required rate kind.
	ErrIncompleteRateSet = errors.New("rate set incomplete")
	// ErrPeriodNotClosed indicates a correction targeted a period without archived records.
	ErrPeriodNotClosed = errors.New("period not archived")
	// ErrPeriodArchived indicates a write targeted an already archived period.
	ErrPeriodArchived = errors.New("period already archived")
	// ErrOutsideRequestWindow indicates an advance request during a blackout window.
	ErrOutsideRequestWindow = errors.New("outside advance request window")
	// ErrCapabilityDenied indicates the actor lacks the required capability.
	ErrCapabilityDenied = errors.New("capability denied")
)

// UserSafeMessage maps internal errors to messages fit for API consumers.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "El recurso solicitado no existe."
	case errors.Is(err, ErrRateNotFound):
		return "No hay una tasa vigente para el alcance solicitado."
	case errors.Is(err, ErrIncompleteRateSet):
		return "El conjunto de tasas está incompleto."
	case errors.Is(err, ErrPeriodNotClosed):
		return "El periodo aún no está archivado."
	case errors.Is(err, ErrPeriodArchived):
		return "El periodo ya está archivado y no admite cambios."
	case errors.Is(err, ErrInvalidPeriodTransition):
		return "El periodo no admite esta transición de estado."
	case errors.Is(err, ErrLockHeld):
		return "Otra operación sobre el periodo está en curso."
	case errors.Is(err, ErrOutsideRequestWindow):
		return "Las solicitudes de anticipo no están disponibles en esta fecha."
	case errors.Is(err, ErrCapabilityDenied):
		return "No tiene permisos para esta operación."
	default:
		return "Ocurrió un error procesando la solicitud."
	}
}
