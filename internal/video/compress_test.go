package video

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestHalve(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"even", 640, 480, 320, 240},
		{"odd", 101, 51, 50, 25},
		{"tiny", 1, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Halve(solid(tt.w, tt.h, color.White))
			assert.Equal(t, tt.wantW, out.Bounds().Dx())
			assert.Equal(t, tt.wantH, out.Bounds().Dy())
		})
	}
}

func TestCompress(t *testing.T) {
	data, err := Compress(solid(64, 48, color.RGBA{R: 200, G: 10, B: 10, A: 255}))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())

	r, _, _, _ := img.At(16, 12).RGBA()
	assert.Greater(t, r>>8, uint32(150))
}

func TestCompress_Empty(t *testing.T) {
	_, err := Compress(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = Compress(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyFrame)
}
