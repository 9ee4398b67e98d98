package constants

// IdP / sync error codes
// These constants define specific failure scenarios when talking to the
// Keycloak admin API or the local store during reconciliation.

const (
	ErrCodeConfigIncomplete    = "CONFIG_INCOMPLETE"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamConflict    = "UPSTREAM_CONFLICT"
	ErrCodeUpstreamRejected    = "UPSTREAM_REJECTED"
	ErrCodeLocalConflict       = "LOCAL_CONFLICT"
	ErrCodeLocalFailure        = "LOCAL_FAILURE"
	ErrCodeNotFound            = "NOT_FOUND"
)

var idpErrorMessages = map[string]string{
	ErrCodeConfigIncomplete:    "Keycloak configuration is incomplete",
	ErrCodeUpstreamUnavailable: "Unable to reach Keycloak or obtain an admin token",
	ErrCodeUpstreamConflict:    "Keycloak reports the resource already exists",
	ErrCodeUpstreamRejected:    "Keycloak rejected the request",
	ErrCodeLocalConflict:       "A record with conflicting unique fields already exists",
	ErrCodeLocalFailure:        "The local database operation failed",
	ErrCodeNotFound:            "The requested record was not found",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := idpErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
