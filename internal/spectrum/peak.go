// SPDX-License-Identifier: MIT
package spectrum

// PeakIndex returns the index of the loudest element with a frequency in
// [low, high), or -1 when no element falls in the range. Ties go to the lower
// frequency.
func (s FrequencySpectrum) PeakIndex(low, high float64) int {
	peak := -1
	for i, e := range s {
		if e.Frequency < low || e.Frequency >= high {
			continue
		}
		if peak < 0 || e.Amplitude > s[peak].Amplitude {
			peak = i
		}
	}
	return peak
}
