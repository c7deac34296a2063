// SPDX-License-Identifier: MIT
/*
Package pcm holds the sample-level building blocks shared by the engine and the
spectrum transform:
- Format: sample rate, channel count and encoding of an interleaved PCM stream
- Conversions between signed 16-bit PCM and normalized real amplitude
- Fixed and linearly swept sine tone synthesis

Only little-endian signed 16-bit PCM is processed; other encodings can be described
(so they can be rejected with a readable message) but not generated or analysed.
*/
package pcm

import (
	"errors"
	"fmt"
	"time"
)

// Encoding is the sample encoding of a Format.
type Encoding int

const (
	UnknownEncoding Encoding = iota
	SignedInt
	UnsignedInt
	Float
)

func (e Encoding) String() string {
	switch e {
	case SignedInt:
		return "signed"
	case UnsignedInt:
		return "unsigned"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// ErrUnsupportedFormat is returned when a stream is not signed 16-bit PCM.
var ErrUnsupportedFormat = errors.New("audio format not supported")

// Format describes an interleaved little-endian PCM stream. The zero value is the
// null format.
type Format struct {
	SampleRate int      `json:"sample_rate"`
	Channels   int      `json:"channels"`
	BitDepth   int      `json:"bit_depth"`
	Encoding   Encoding `json:"encoding"`
}

// S16LE returns a signed 16-bit little-endian format.
func S16LE(sampleRate, channels int) Format {
	return Format{
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   16,
		Encoding:   SignedInt,
	}
}

// IsValid reports whether f describes a usable stream.
func (f Format) IsValid() bool {
	return f.SampleRate > 0 && f.Channels > 0 && f.BitDepth > 0
}

// IsS16LE reports whether f is signed 16-bit PCM, the only encoding the engine
// processes.
func (f Format) IsS16LE() bool {
	return f.IsValid() && f.BitDepth == 16 && f.Encoding == SignedInt
}

// BytesPerSample is the size of one channel sample.
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// BytesPerFrame is the size of one sample for every channel.
func (f Format) BytesPerFrame() int {
	return f.BytesPerSample() * f.Channels
}

// BytesForDuration returns the byte length of d worth of audio, rounded down to a
// whole number of frames.
func (f Format) BytesForDuration(d time.Duration) int64 {
	frame := int64(f.BytesPerFrame())
	if frame == 0 || d <= 0 {
		return 0
	}
	n := int64(f.SampleRate) * frame * d.Microseconds() / 1_000_000
	return n - n%frame
}

// DurationForBytes is the inverse of BytesForDuration.
func (f Format) DurationForBytes(n int64) time.Duration {
	rate := int64(f.SampleRate) * int64(f.BytesPerFrame())
	if rate == 0 {
		return 0
	}
	return time.Duration(n * 1_000_000 / rate * int64(time.Microsecond))
}

// Nyquist is half the sample rate.
func (f Format) Nyquist() float64 {
	return 0.5 * float64(f.SampleRate)
}

// String renders f for status messages, e.g. "48000 Hz 16 bit signed LE stereo".
func (f Format) String() string {
	if f == (Format{}) {
		return ""
	}
	channels := fmt.Sprintf("%d channels", f.Channels)
	switch f.Channels {
	case 1:
		channels = "mono"
	case 2:
		channels = "stereo"
	}
	return fmt.Sprintf("%d Hz %d bit %s LE %s", f.SampleRate, f.BitDepth, f.Encoding, channels)
}
