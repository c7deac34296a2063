// SPDX-License-Identifier: MIT
package pcm

import (
	"fmt"
	"math"
)

// Tone is a fixed-frequency sine tone.
type Tone struct {
	Frequency float64
	Amplitude float64
}

// Swept returns t as a degenerate swept tone.
func (t Tone) Swept() SweptTone {
	return SweptTone{StartFreq: t.Frequency, EndFreq: t.Frequency, Amplitude: t.Amplitude}
}

// SweptTone is a sine tone whose instantaneous frequency moves linearly from
// StartFreq to EndFreq over the generated buffer. An EndFreq of zero means "not set"
// and is resolved by the engine before generation.
type SweptTone struct {
	StartFreq float64
	EndFreq   float64
	Amplitude float64
}

// GenerateTone fills buf with tone encoded as f. buf must hold a whole number of
// frames. Every channel of a frame carries the same sample.
func GenerateTone(tone SweptTone, f Format, buf []byte) error {
	if !f.IsS16LE() {
		return fmt.Errorf("generate tone: %w: %s", ErrUnsupportedFormat, f)
	}
	frameBytes := f.BytesPerFrame()
	if len(buf)%frameBytes != 0 {
		return fmt.Errorf("generate tone: buffer length %d is not a multiple of frame size %d", len(buf), frameBytes)
	}
	numSamples := len(buf) / frameBytes
	if numSamples == 0 {
		return nil
	}

	// A 0 Hz sine is silence; start the sweep at 1 Hz instead.
	startFreq := tone.StartFreq
	if startFreq == 0 {
		startFreq = 1.0
	}

	d := 2 * math.Pi / float64(f.SampleRate)
	phase := 0.0
	phaseStep := d * startFreq
	phaseStepStep := d * (tone.EndFreq - startFreq) / float64(numSamples)

	channelBytes := f.BytesPerSample()
	for i := 0; i < len(buf); {
		value := FromReal(tone.Amplitude * math.Sin(phase))
		for c := 0; c < f.Channels; c++ {
			PutSample(buf, i, value)
			i += channelBytes
		}

		// Repeated subtraction, not math.Mod: keeps output bit-identical to the
		// reference generator.
		phase += phaseStep
		for phase > 2*math.Pi {
			phase -= 2 * math.Pi
		}
		phaseStep += phaseStepStep
	}
	return nil
}
