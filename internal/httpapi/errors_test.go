package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"fitroom/internal/generate"
	"fitroom/internal/imageio"
	"fitroom/internal/service"
	"fitroom/internal/store"
	"fitroom/internal/variant"
)

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{mockHTTPError{"teapot", http.StatusTeapot}, http.StatusTeapot},
		{fmt.Errorf("wrapped: %w", variant.ErrVariantNotFound), http.StatusNotFound},
		{variant.ErrNoVariantAvailable, http.StatusConflict},
		{fmt.Errorf("%w: steps", generate.ErrInvalidRequest), http.StatusBadRequest},
		{store.ErrInvalidRating, http.StatusBadRequest},
		{fmt.Errorf("%w: generation x", store.ErrNotFound), http.StatusNotFound},
		{imageio.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{service.ErrNotReady("loading"), http.StatusServiceUnavailable},
		{service.ErrHistoryDisabled, http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Fatalf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
