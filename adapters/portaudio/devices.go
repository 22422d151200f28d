// Package portaudio opens the local microphone and speaker. The real devices
// need cgo and the PortAudio library, so they are only built with the
// "portaudio" build tag; without it every open reports ErrDeviceUnavailable.
package portaudio

import "github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"

// Frames buffered between the device thread and the capture loop
const frameBuffer = 16

var _ repositories.AudioDevices = (*Devices)(nil)
