package imageio

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	raw := pngBytes(t, 6, 4)
	d, err := Decode(bytes.NewReader(raw), 0)
	require.NoError(t, err)
	assert.Equal(t, "png", d.Format)
	assert.Equal(t, "image/png", d.MIME())
	assert.Equal(t, raw, d.Raw)

	_, err = Decode(bytes.NewReader(raw), int64(len(raw)-1))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Decode(bytes.NewReader([]byte("not an image")), 0)
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestFetch(t *testing.T) {
	raw := pngBytes(t, 3, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(raw)
	}))
	defer srv.Close()
	ctx := context.Background()

	d, err := Fetch(ctx, srv.Client(), srv.URL+"/shirt.png", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Image.Bounds().Dx())

	_, err = Fetch(ctx, srv.Client(), srv.URL+"/missing", 1<<20)
	assert.Error(t, err)

	_, err = Fetch(ctx, srv.Client(), srv.URL+"/shirt.png", 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Fetch(ctx, nil, "file:///etc/passwd", 0)
	assert.Error(t, err)
}
