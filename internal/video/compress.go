// Package video turns live frames into small stills for the realtime channel.
package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	// JPEGQuality is the encoder quality used for every sampled frame
	JPEGQuality = 60
	// MIMEType is the type of compressed frames
	MIMEType = "image/jpeg"
)

// ErrEmptyFrame is returned for frames without pixels
var ErrEmptyFrame = errors.New("empty video frame")

// Halve scales src to half its width and height. Each dimension is at
// least one pixel.
func Halve(src image.Image) image.Image {
	b := src.Bounds()
	w, h := max(b.Dx()/2, 1), max(b.Dy()/2, 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Compress halves src and encodes it as JPEG
func Compress(src image.Image) ([]byte, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Halve(src), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
