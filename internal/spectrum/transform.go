// SPDX-License-Identifier: MIT
/*
Package spectrum turns fixed-size blocks of 16-bit PCM into a frequency spectrum.

Transform does the work synchronously: normalize, window, FFT, then convert each
complex bin into amplitude and phase. Analyser wraps a Transform in a single worker
goroutine with an Idle -> Busy -> (Cancelled ->) Idle state machine so the caller's
thread never pays for the FFT.
*/
package spectrum

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"spectrum/internal/pcm"
	"spectrum/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultMultiplier maps typical bin magnitudes into a displayable [0,1] range.
const DefaultMultiplier = 0.15

// Element is one bin of a FrequencySpectrum.
type Element struct {
	Frequency float64 `json:"frequency"` // Hz
	Amplitude float64 `json:"amplitude"` // [0,1]
	Phase     float64 `json:"phase"`     // [0,2*pi)
	Clipped   bool    `json:"clipped"`   // Amplitude was clamped to 1
}

// FrequencySpectrum holds length/2 bins in ascending frequency order.
type FrequencySpectrum []Element

// workspace holds pre-allocated buffers for one block size.
type workspace struct {
	input  []float64    // ...for windowed, normalized samples
	output []complex128 // ...for FFT coefficients (N/2+1)
	window []float64    // ...for window coefficients
}

// Transform computes spectra for blocks of a fixed number of samples.
// A Transform is not safe for concurrent use.
type Transform struct {
	length     int
	multiplier float64
	windowFunc Window
	fft        *fourier.FFT
	workspace  workspace
}

// NewTransform creates a Transform for blocks of length samples. length must be a
// power of two.
func NewTransform(length int, w Window, multiplier float64) (*Transform, error) {
	if !bitint.IsPowerOfTwo(length) || length < 2 {
		return nil, fmt.Errorf("spectrum length must be a power of 2, got %d", length)
	}
	t := &Transform{
		length:     length,
		multiplier: multiplier,
		windowFunc: w,
		fft:        fourier.NewFFT(length),
		workspace: workspace{
			input:  make([]float64, length),
			output: make([]complex128, length/2+1),
			window: make([]float64, length),
		},
	}
	fillWindow(t.workspace.window, w)
	return t, nil
}

// Length is the number of samples per block.
func (t *Transform) Length() int {
	return t.length
}

// Window returns the active window function.
func (t *Transform) Window() Window {
	return t.windowFunc
}

// SetWindow recomputes the window coefficients if w differs from the current one.
func (t *Transform) SetWindow(w Window) {
	if w == t.windowFunc {
		return
	}
	t.windowFunc = w
	fillWindow(t.workspace.window, w)
}

// Calculate returns the spectrum of the first channel of buf, which must hold
// exactly Length frames of f. ctx is checked between the stages of the calculation;
// a cancelled ctx returns ctx.Err() and no spectrum.
func (t *Transform) Calculate(ctx context.Context, buf []byte, f pcm.Format) (FrequencySpectrum, error) {
	if !f.IsS16LE() {
		return nil, fmt.Errorf("spectrum: %w: %s", pcm.ErrUnsupportedFormat, f)
	}
	frameBytes := f.BytesPerFrame()
	if len(buf) != t.length*frameBytes {
		return nil, fmt.Errorf("spectrum: buffer holds %d bytes, want %d", len(buf), t.length*frameBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range t.length {
		t.workspace.input[i] = pcm.ToReal(pcm.SampleAt(buf, i*frameBytes)) * t.workspace.window[i]
	}

	t.fft.Coefficients(t.workspace.output, t.workspace.input)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := float64(t.length)
	spectrum := make(FrequencySpectrum, t.length/2)
	for i := range spectrum {
		c := t.workspace.output[i]
		amplitude := t.multiplier * cmplx.Abs(c) / n
		phase := math.Atan2(imag(c), real(c))
		if phase < 0 {
			phase += 2 * math.Pi
		}
		spectrum[i] = Element{
			Frequency: float64(i) * float64(f.SampleRate) / n,
			Amplitude: math.Min(amplitude, 1.0),
			Phase:     phase,
			Clipped:   amplitude > 1.0,
		}
	}
	return spectrum, nil
}
