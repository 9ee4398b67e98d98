package api

import (
	"errors"
	"net/http"

	"verbindung/mitgliederamt/internal/constants"
	"verbindung/mitgliederamt/internal/providers"
)

// statusForError maps engine error codes to HTTP status codes. Anything
// without a structured code is a plain 500.
func statusForError(err error) int {
	var perr *providers.ProviderError
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError
	}

	switch perr.Code {
	case constants.ErrCodeNotFound:
		return http.StatusNotFound
	case constants.ErrCodeLocalConflict, constants.ErrCodeUpstreamConflict:
		return http.StatusConflict
	case constants.ErrCodeConfigIncomplete:
		return http.StatusServiceUnavailable
	case constants.ErrCodeUpstreamUnavailable, constants.ErrCodeUpstreamRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
