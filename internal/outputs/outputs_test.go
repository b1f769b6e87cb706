package outputs

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveOpenRemove(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "outputs"))
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	img.Set(3, 3, color.RGBA{G: 255, A: 255})
	name, err := s.Save(img)
	require.NoError(t, err)
	assert.Regexp(t, `^result_[0-9a-f-]{36}\.jpg$`, name)

	f, err := s.Open(name)
	require.NoError(t, err)
	dec, err := jpeg.Decode(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, 20, dec.Bounds().Dx())

	entries, _ := os.ReadDir(s.Dir())
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, s.Remove(name))
	require.NoError(t, s.Remove(name), "second remove is a no-op")
	_, err = s.Open(name)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPathRejectsTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	for _, bad := range []string{"../etc/passwd", "result_x.jpg", "", "result_00000000-0000-0000-0000-000000000000.png"} {
		_, err := s.Path(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
	_, err = s.Path("result_00000000-0000-0000-0000-000000000000.jpg")
	assert.NoError(t, err)
}
