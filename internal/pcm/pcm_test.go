// SPDX-License-Identifier: MIT
package pcm

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func TestRealRoundTrip(t *testing.T) {
	// Truncation loses up to one step and the 32767/32768 scale mismatch up to
	// another at full scale.
	const step = 2.0 / 32767
	for i := -1000; i <= 1000; i++ {
		x := float64(i) / 1000
		got := ToReal(FromReal(x))
		if math.Abs(got-x) > step {
			t.Fatalf("ToReal(FromReal(%v)) = %v, off by more than two steps", x, got)
		}
	}
}

func TestFromRealTruncates(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{1.0, 32767},
		{-1.0, -32767},
		{0.5, 16383},
		{-0.5, -16383},
		{0.99999, 32766},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.in), func(t *testing.T) {
			if got := FromReal(tt.in); got != tt.want {
				t.Errorf("FromReal(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromRealWrapsOutOfRange(t *testing.T) {
	// 2.0 * 32767 = 65534, which wraps to -2 in 16 bits.
	if got := FromReal(2.0); got != -2 {
		t.Errorf("FromReal(2.0) = %d, want -2 (wraparound)", got)
	}
}

func TestToRealRange(t *testing.T) {
	if got := ToReal(math.MinInt16); got != -1.0 {
		t.Errorf("ToReal(MinInt16) = %v, want -1", got)
	}
	if got := ToReal(math.MaxInt16); got >= 1.0 {
		t.Errorf("ToReal(MaxInt16) = %v, want < 1", got)
	}
}

func TestSampleCodec(t *testing.T) {
	buf := make([]byte, 4)
	PutSample(buf, 2, -12345)
	if buf[0] != 0 || buf[1] != 0 {
		t.Fatalf("PutSample wrote outside its slot: %v", buf)
	}
	if got := SampleAt(buf, 2); got != -12345 {
		t.Errorf("SampleAt = %d, want -12345", got)
	}
	// Little endian: low byte first.
	PutSample(buf, 0, 0x0102)
	if buf[0] != 0x02 || buf[1] != 0x01 {
		t.Errorf("PutSample byte order = %x %x, want 02 01", buf[0], buf[1])
	}
}

func TestFormatLengths(t *testing.T) {
	f := S16LE(48000, 2)
	if got := f.BytesPerFrame(); got != 4 {
		t.Fatalf("BytesPerFrame = %d, want 4", got)
	}
	if got := f.BytesForDuration(time.Second); got != 192000 {
		t.Errorf("BytesForDuration(1s) = %d, want 192000", got)
	}
	if got := f.BytesForDuration(100 * time.Millisecond); got != 19200 {
		t.Errorf("BytesForDuration(100ms) = %d, want 19200", got)
	}
	if got := f.DurationForBytes(192000); got != time.Second {
		t.Errorf("DurationForBytes(192000) = %v, want 1s", got)
	}
	// Partial frames are dropped.
	odd := S16LE(11025, 2)
	if n := odd.BytesForDuration(time.Millisecond); n%4 != 0 {
		t.Errorf("BytesForDuration returned partial frame: %d", n)
	}
	if got := (Format{}).BytesForDuration(time.Second); got != 0 {
		t.Errorf("null format BytesForDuration = %d, want 0", got)
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		f    Format
		want string
	}{
		{Format{}, ""},
		{S16LE(48000, 2), "48000 Hz 16 bit signed LE stereo"},
		{S16LE(8000, 1), "8000 Hz 16 bit signed LE mono"},
		{Format{SampleRate: 44100, Channels: 6, BitDepth: 24, Encoding: SignedInt}, "44100 Hz 24 bit signed LE 6 channels"},
		{Format{SampleRate: 22050, Channels: 1, BitDepth: 8, Encoding: UnsignedInt}, "22050 Hz 8 bit unsigned LE mono"},
	}
	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormatIsS16LE(t *testing.T) {
	if !S16LE(8000, 1).IsS16LE() {
		t.Error("S16LE format not recognised")
	}
	if (Format{SampleRate: 8000, Channels: 1, BitDepth: 8, Encoding: UnsignedInt}).IsS16LE() {
		t.Error("8-bit format reported as S16LE")
	}
	if (Format{}).IsS16LE() {
		t.Error("null format reported as S16LE")
	}
}
