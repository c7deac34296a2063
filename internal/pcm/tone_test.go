// SPDX-License-Identifier: MIT
package pcm

import (
	"errors"
	"math"
	"testing"
	"time"
)

func zeroCrossings(buf []byte, f Format) int {
	frame := f.BytesPerFrame()
	n := 0
	prev := SampleAt(buf, 0)
	for i := frame; i < len(buf); i += frame {
		cur := SampleAt(buf, i)
		if (prev < 0) != (cur < 0) {
			n++
		}
		prev = cur
	}
	return n
}

func TestGenerateToneChannelsMatch(t *testing.T) {
	f := S16LE(8000, 2)
	buf := make([]byte, f.BytesForDuration(100*time.Millisecond))
	if err := GenerateTone(Tone{Frequency: 440, Amplitude: 0.8}.Swept(), f, buf); err != nil {
		t.Fatalf("GenerateTone: %v", err)
	}
	for i := 0; i < len(buf); i += 4 {
		if l, r := SampleAt(buf, i), SampleAt(buf, i+2); l != r {
			t.Fatalf("frame %d: left %d != right %d", i/4, l, r)
		}
	}
}

func TestGenerateToneAmplitude(t *testing.T) {
	f := S16LE(8000, 1)
	buf := make([]byte, 16000)
	if err := GenerateTone(Tone{Frequency: 1000, Amplitude: 0.5}.Swept(), f, buf); err != nil {
		t.Fatalf("GenerateTone: %v", err)
	}
	limit := FromReal(0.5)
	var peak int16
	for i := 0; i < len(buf); i += 2 {
		v := SampleAt(buf, i)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak > limit {
		t.Errorf("peak %d exceeds amplitude limit %d", peak, limit)
	}
	if peak < limit-200 {
		t.Errorf("peak %d too far below amplitude limit %d", peak, limit)
	}
}

func TestGenerateToneFrequency(t *testing.T) {
	f := S16LE(8000, 1)
	buf := make([]byte, f.BytesForDuration(time.Second))
	if err := GenerateTone(Tone{Frequency: 100, Amplitude: 0.5}.Swept(), f, buf); err != nil {
		t.Fatalf("GenerateTone: %v", err)
	}
	// 100 Hz for one second crosses zero twice per cycle.
	if got := zeroCrossings(buf, f); math.Abs(float64(got-200)) > 2 {
		t.Errorf("zero crossings = %d, want ~200", got)
	}
}

func TestGenerateToneZeroStartFrequency(t *testing.T) {
	f := S16LE(8000, 1)
	zero := make([]byte, 800)
	one := make([]byte, 800)
	if err := GenerateTone(SweptTone{StartFreq: 0, EndFreq: 500, Amplitude: 0.5}, f, zero); err != nil {
		t.Fatal(err)
	}
	if err := GenerateTone(SweptTone{StartFreq: 1, EndFreq: 500, Amplitude: 0.5}, f, one); err != nil {
		t.Fatal(err)
	}
	for i := range zero {
		if zero[i] != one[i] {
			t.Fatalf("0 Hz start differs from 1 Hz start at byte %d", i)
		}
	}
}

func TestGenerateSweptToneRisesAcrossQuarters(t *testing.T) {
	f := S16LE(16000, 1)
	buf := make([]byte, f.BytesForDuration(2*time.Second))
	if err := GenerateTone(SweptTone{StartFreq: 100, EndFreq: 4000, Amplitude: 0.7}, f, buf); err != nil {
		t.Fatalf("GenerateTone: %v", err)
	}
	quarter := len(buf) / 4
	prev := -1
	for q := 0; q < 4; q++ {
		n := zeroCrossings(buf[q*quarter:(q+1)*quarter], f)
		if n < prev {
			t.Errorf("quarter %d has %d crossings, fewer than previous %d", q, n, prev)
		}
		prev = n
	}
}

func TestGenerateToneErrors(t *testing.T) {
	tone := Tone{Frequency: 440, Amplitude: 0.5}.Swept()
	if err := GenerateTone(tone, Format{SampleRate: 8000, Channels: 1, BitDepth: 8, Encoding: UnsignedInt}, make([]byte, 8)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("8-bit format: got %v, want ErrUnsupportedFormat", err)
	}
	if err := GenerateTone(tone, S16LE(8000, 2), make([]byte, 6)); err == nil {
		t.Error("partial frame: expected error")
	}
	if err := GenerateTone(tone, S16LE(8000, 2), nil); err != nil {
		t.Errorf("empty buffer: unexpected error %v", err)
	}
}
