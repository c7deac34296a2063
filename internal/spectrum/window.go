// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Window selects the function applied to a block before the FFT.
type Window int

const (
	NoWindow Window = iota
	HannWindow
)

// DefaultWindow is used when no window has been configured.
const DefaultWindow = HannWindow

func (w Window) String() string {
	switch w {
	case NoWindow:
		return "none"
	case HannWindow:
		return "hann"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindow converts a case-insensitive name to a Window. Unknown names return
// DefaultWindow and an error.
func ParseWindow(name string) (Window, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return NoWindow, nil
	case "hann", "hanning":
		return HannWindow, nil
	default:
		return DefaultWindow, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// fillWindow writes the coefficients of w into coeffs. The Hann window is
// 0.5*(1-cos(2*pi*i/(N-1))).
func fillWindow(coeffs []float64, w Window) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	if w != NoWindow {
		window.Hann(coeffs)
	}
}
