// Package audio holds the sample-level plumbing shared by capture and
// playback: PCM16 conversion, the text transport codec, volume measurement,
// and gapless playback scheduling against a device clock.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// CaptureSampleRate is the microphone rate expected by the model
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate of model speech
	PlaybackSampleRate = 24000
	// CaptureFrameSize is the processing block size of the capture pipeline
	CaptureFrameSize = 4096
)

// ErrOddLength is returned when PCM16 data does not contain whole samples
var ErrOddLength = errors.New("pcm16 data has odd length")

// FloatToPCM16 converts samples to 16-bit little-endian PCM. Samples are
// clamped to [-1, 1]; negative values scale by 0x8000, positive by 0x7FFF.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PCM16ToFloat converts 16-bit little-endian PCM to samples in [-1, 1)
func PCM16ToFloat(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, ErrOddLength
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out, nil
}

// EncodeBase64 encodes binary data for a text transport
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 reverses EncodeBase64
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// RMS returns the root mean square of samples, 0 for an empty frame
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Duration returns the play time of n samples at rate
func Duration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// FrameAt returns the frame nearest to device time t at rate
func FrameAt(t time.Duration, rate int) int64 {
	if rate <= 0 || t <= 0 {
		return 0
	}
	r := int64(rate)
	sec, rem := int64(t/time.Second), int64(t%time.Second)
	return sec*r + (rem*r+int64(time.Second)/2)/int64(time.Second)
}

// FrameTime returns the device time of frame f at rate, rounded to the
// nearest nanosecond. FrameAt(FrameTime(f, rate), rate) == f.
func FrameTime(f int64, rate int) time.Duration {
	if rate <= 0 || f <= 0 {
		return 0
	}
	r := int64(rate)
	sec, rem := f/r, f%r
	return time.Duration(sec)*time.Second + time.Duration((rem*int64(time.Second)+r/2)/r)
}

// ParseRate extracts the rate parameter of a MIME type such as
// "audio/pcm;rate=24000".
func ParseRate(mime string) (int, bool) {
	for _, part := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.ToLower(strings.TrimSpace(k)) != "rate" {
			continue
		}
		rate, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || rate <= 0 {
			return 0, false
		}
		return rate, true
	}
	return 0, false
}

// PCMMIMEType returns the MIME type for PCM16 at rate
func PCMMIMEType(rate int) string {
	return "audio/pcm;rate=" + strconv.Itoa(rate)
}
