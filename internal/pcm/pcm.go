// SPDX-License-Identifier: MIT
package pcm

import "encoding/binary"

const (
	pcmMaxValue = 32767
	pcmScale    = 32768.0
)

// ToReal maps a signed 16-bit sample onto [-1.0, 1.0).
func ToReal(v int16) float64 {
	return float64(v) / pcmScale
}

// FromReal maps a real amplitude onto a signed 16-bit sample by scaling with 32767
// and truncating toward zero. The input is not clamped: values outside [-1, 1]
// wrap around exactly like the integer conversion does. Callers that need
// saturation must clamp first.
func FromReal(x float64) int16 {
	return int16(int32(x * pcmMaxValue))
}

// SampleAt decodes the little-endian 16-bit sample starting at byte offset i.
func SampleAt(buf []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(buf[i:]))
}

// PutSample encodes v little-endian at byte offset i.
func PutSample(buf []byte, i int, v int16) {
	binary.LittleEndian.PutUint16(buf[i:], uint16(v))
}
