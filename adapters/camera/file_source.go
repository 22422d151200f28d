// Package camera provides video sources for the frame sampler.
package camera

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// ErrNoFrame is returned when no still has been written yet
var ErrNoFrame = errors.New("no camera frame available")

// FileSource reads the latest still written by an external grabber, for
// example `ffmpeg -f v4l2 -i /dev/video0 -update 1 -r 2 frame.jpg`. JPEG,
// PNG and WebP stills are supported. A decoded frame is reused until the
// file changes.
type FileSource struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	modTime time.Time
	size    int64
	frame   image.Image
}

var _ repositories.VideoSource = (*FileSource)(nil)

// NewFileSource creates a source reading path
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Ready reports whether a non-empty still exists
func (s *FileSource) Ready() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Frame decodes the current still
func (s *FileSource) Frame() (image.Image, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoFrame
		}
		return nil, fmt.Errorf("failed to stat camera frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != nil && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.frame, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera frame: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		// the grabber may be mid-write, keep serving the previous frame
		if s.frame != nil {
			s.logger.Debug("Camera frame unreadable, reusing previous", zap.Error(err))
			return s.frame, nil
		}
		return nil, fmt.Errorf("failed to decode camera frame: %w", err)
	}

	s.logger.Debug("Camera frame loaded",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	s.frame = img
	s.modTime = info.ModTime()
	s.size = info.Size()
	return img, nil
}
