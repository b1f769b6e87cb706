package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fitroom/internal/generate"
	"fitroom/internal/imageio"
	"fitroom/internal/outputs"
	"fitroom/internal/pipeline"
	"fitroom/internal/prompt"
	"fitroom/internal/service"
	"fitroom/internal/store"
	"fitroom/internal/variant"
	"fitroom/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// badRequest is a client error raised by the handlers themselves.
type badRequest struct{ msg string }

func (e badRequest) Error() string   { return e.msg }
func (e badRequest) StatusCode() int { return http.StatusBadRequest }

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case service.IsTooBusy(err):
		return http.StatusTooManyRequests
	case service.IsNotReady(err), pipeline.IsLoadError(err), errors.Is(err, prompt.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrHistoryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, variant.ErrVariantNotFound), errors.Is(err, store.ErrNotFound),
		errors.Is(err, outputs.ErrInvalidName):
		return http.StatusNotFound
	case errors.Is(err, variant.ErrVariantUnavailable), errors.Is(err, variant.ErrNoVariantAvailable):
		return http.StatusConflict
	case errors.Is(err, generate.ErrInvalidRequest), errors.Is(err, store.ErrInvalidRating),
		errors.Is(err, imageio.ErrUndecodable):
		return http.StatusBadRequest
	case errors.Is(err, imageio.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeError maps err and writes it, counting backpressure rejections.
func writeError(w http.ResponseWriter, err error) int {
	code := statusFor(err)
	if code == http.StatusTooManyRequests {
		IncrementBackpressure("generation_queue")
	}
	writeJSONError(w, code, err.Error())
	return code
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Error().Err(err).Msg("encoding response")
	}
}
