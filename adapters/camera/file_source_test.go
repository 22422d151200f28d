package camera

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestFileSource_NotReadyWithoutFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "frame.png"), zap.NewNop())

	assert.False(t, src.Ready())
	_, err := src.Frame()
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestFileSource_DecodesFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	writePNG(t, path, 40, 30)
	src := NewFileSource(path, zap.NewNop())

	require.True(t, src.Ready())
	img, err := src.Frame()
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())

	again, err := src.Frame()
	require.NoError(t, err)
	assert.Same(t, img, again)
}

func TestFileSource_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	src := NewFileSource(path, zap.NewNop())

	assert.True(t, src.Ready())
	_, err := src.Frame()
	assert.Error(t, err)
}
