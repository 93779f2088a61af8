package httpx

import (
	"errors"
	"net/http"
)

// Sentinels handlers wrap to pick the response status.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("upstream unavailable")
)

type errorMapping struct {
	target error
	status int
	// exposed is false when the wrapped cause may leak infrastructure details.
	exposed bool
	detail  string
}

var errorMappings = []errorMapping{
	{target: ErrNotFound, status: http.StatusNotFound, exposed: true},
	{target: ErrValidation, status: http.StatusBadRequest, exposed: true},
	{target: ErrUnauthorized, status: http.StatusUnauthorized, exposed: true},
	{target: ErrUnavailable, status: http.StatusServiceUnavailable, detail: "report data could not be loaded"},
}

// RespondError writes err as a problem document. Unmapped errors become a bare 500.
func RespondError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		detail := m.detail
		if m.exposed {
			detail = err.Error()
		}
		Problem(w, m.status, http.StatusText(m.status), detail)
		return
	}
	Problem(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), "")
}
