package directory

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// Domain errors for directory operations.
var (
	ErrInvalidFilter = errors.New("filter must be one of all, active, inactive")
)

// MapHTTPStatus maps directory errors to HTTP status codes. Failures of the
// upstream CMS map to 502.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidFilter) {
		return http.StatusBadRequest
	}
	var apiErr *kontent.APIError
	if errors.As(err, &apiErr) ||
		errors.Is(err, kontent.ErrNoResponse) ||
		errors.Is(err, kontent.ErrMalformedResponse) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
