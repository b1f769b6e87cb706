// Package imageio decodes uploaded and fetched images with size limits.
package imageio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"

	_ "golang.org/x/image/webp"
)

// ErrTooLarge is returned when input exceeds the byte limit.
var ErrTooLarge = errors.New("image too large")

// ErrUndecodable is returned when input is not a supported image.
var ErrUndecodable = errors.New("unsupported or corrupt image")

// Decoded is an image with the bytes it was decoded from.
type Decoded struct {
	Image  image.Image
	Format string
	Raw    []byte
}

// MIME returns the content type for the decoded format.
func (d Decoded) MIME() string {
	if d.Format == "" {
		return "application/octet-stream"
	}
	return "image/" + d.Format
}

// Decode reads at most limit bytes from r and decodes them. limit <= 0
// disables the limit.
func Decode(r io.Reader, limit int64) (Decoded, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return Decoded{}, err
	}
	if limit > 0 && int64(len(raw)) > limit {
		return Decoded{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return Decoded{Image: img, Format: format, Raw: raw}, nil
}

// Fetch downloads an http(s) image and decodes it.
func Fetch(ctx context.Context, client *http.Client, rawURL string, limit int64) (Decoded, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Decoded{}, fmt.Errorf("invalid image url %q", rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Decoded{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Decoded{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Decoded{}, fmt.Errorf("fetch image: %s", resp.Status)
	}
	if limit > 0 && resp.ContentLength > limit {
		return Decoded{}, fmt.Errorf("%w: content-length %d", ErrTooLarge, resp.ContentLength)
	}
	return Decode(resp.Body, limit)
}
