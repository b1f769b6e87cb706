package httpapi

import (
	"net/http"
	"time"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// formOverheadBytes covers the text fields and part headers of a multipart
// upload on top of its images.
const formOverheadBytes = 1 << 20

// maxUploadBytes bounds each uploaded or fetched image. A whole multipart
// body may carry two images, so it is capped at 2*maxUploadBytes plus
// formOverheadBytes.
var maxUploadBytes int64 = 20 << 20

// SetMaxUploadBytes configures the per-image limit (<= 0 restores 20 MiB).
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = 20 << 20
		return
	}
	maxUploadBytes = n
}

// tryOnTimeout bounds a whole /tryon request. Zero disables it.
var tryOnTimeout time.Duration

// SetTryOnTimeout sets the per-request try-on timeout (0 disables).
func SetTryOnTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	tryOnTimeout = d
}

// TryOnTimeout reports the configured per-request try-on timeout.
func TryOnTimeout() time.Duration { return tryOnTimeout }

// fetchClient downloads garment images given by URL.
var fetchClient = &http.Client{Timeout: 30 * time.Second}

// SetFetchClient replaces the client used for garment_url downloads.
func SetFetchClient(c *http.Client) {
	if c == nil {
		c = &http.Client{Timeout: 30 * time.Second}
	}
	fetchClient = c
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
