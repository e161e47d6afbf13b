package htcore

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/status"
)

// WriteText writes text to HTTP response.
func WriteText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(text)))

	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(text)); err != nil {
		core.LogErr.Errorf("http-response: failed to write text: %v", err)
	}
}

// WriteJSON encodes v as JSON and writes it to HTTP response.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	buf, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("error: failed to format JSON: %v", err),
			http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))

	w.WriteHeader(code)

	if _, err := w.Write(buf); err != nil {
		core.LogErr.Errorf("http-response: failed to write JSON: %v", err)
	}
}

// WriteError writes err as a JSON error with the HTTP code derived from the error.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, ErrorCode(err), map[string]string{
		"error": err.Error(),
	})
}

// ErrorCode maps the error to the HTTP status code.
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, status.StatusNoData):
		return http.StatusNotFound
	case errors.Is(err, status.StatusInvalidArg):
		return http.StatusBadRequest
	case errors.Is(err, status.StatusConflict), errors.Is(err, status.StatusStale):
		return http.StatusConflict
	case errors.Is(err, status.StatusInvalidState):
		return http.StatusServiceUnavailable
	case errors.Is(err, status.StatusNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, status.StatusTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
