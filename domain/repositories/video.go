package repositories

import "image"

// VideoSource is a live feed that can be sampled at any time
type VideoSource interface {
	// Ready reports whether a frame is available
	Ready() bool
	// Frame returns the current frame
	Frame() (image.Image, error)
}
