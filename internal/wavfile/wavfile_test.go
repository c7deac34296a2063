// SPDX-License-Identifier: MIT
package wavfile

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"spectrum/internal/pcm"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func ramp(frames, channels int) []byte {
	buf := make([]byte, frames*channels*2)
	for i := 0; i < frames*channels; i++ {
		pcm.PutSample(buf, i*2, int16(i*7-1000))
	}
	return buf
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.wav")
	f := pcm.S16LE(22050, 2)
	// Larger than one encoder chunk so the write loop runs more than once.
	data := ramp(chunkFrames+123, 2)

	if err := WriteFile(path, f, data); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.Format() != f {
		t.Errorf("Format = %s, want %s", r.Format(), f)
	}
	if r.HeaderLength() != 44 {
		t.Errorf("HeaderLength = %d, want 44", r.HeaderLength())
	}
	if r.DataLength() != int64(len(data)) {
		t.Errorf("DataLength = %d, want %d", r.DataLength(), len(data))
	}
	if r.Size() != r.HeaderLength()+r.DataLength() {
		t.Errorf("Size = %d, want header + data", r.Size())
	}
	if r.Pos() != r.HeaderLength() {
		t.Errorf("Pos = %d, want %d", r.Pos(), r.HeaderLength())
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("payload mismatch")
	}
	if !r.AtEnd() {
		t.Error("AtEnd false after reading all data")
	}
}

func TestReaderSeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.wav")
	f := pcm.S16LE(8000, 1)
	data := ramp(1000, 1)
	if err := WriteFile(path, f, data); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err := r.Seek(r.HeaderLength() + 100); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 10)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, data[100:110]) {
		t.Errorf("read after Seek = % x, want % x", buf, data[100:110])
	}

	// Seeks are clamped to the data chunk.
	if err := r.Seek(0); err != nil {
		t.Fatal(err)
	}
	if r.Pos() != r.HeaderLength() {
		t.Errorf("Pos after Seek(0) = %d, want %d", r.Pos(), r.HeaderLength())
	}
	if err := r.Seek(1 << 30); err != nil {
		t.Fatal(err)
	}
	if !r.AtEnd() {
		t.Error("AtEnd false after seeking past the end")
	}
	if n, err := r.Read(buf); n != 0 || err != io.EOF {
		t.Errorf("Read at end = %d, %v; want 0, EOF", n, err)
	}

	if err := r.Rewind(); err != nil {
		t.Fatal(err)
	}
	if r.AtEnd() || r.Pos() != r.HeaderLength() {
		t.Error("Rewind did not return to the payload start")
	}
}

func TestReaderReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readat.wav")
	data := ramp(64, 1)
	if err := WriteFile(path, pcm.S16LE(8000, 1), data); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	buf := make([]byte, 32)
	n, err := r.ReadAt(buf, 110)
	if err != nil || n != len(data)-110 {
		t.Fatalf("ReadAt tail = %d, %v; want %d", n, err, len(data)-110)
	}
	if !bytes.Equal(buf[:n], data[110:]) {
		t.Error("ReadAt payload mismatch")
	}
	if r.Pos() != r.HeaderLength() {
		t.Error("ReadAt moved the read position")
	}
	if _, err := r.ReadAt(buf, int64(len(data))); err != io.EOF {
		t.Errorf("ReadAt past end = %v, want EOF", err)
	}
}

func writeEncoded(t *testing.T, path string, rate, bitDepth, channels int) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(file, rate, bitDepth, channels, formatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, 256*channels),
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenReportsOtherFormats(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		encoding pcm.Encoding
	}{
		{"24-bit", 24, pcm.SignedInt},
		{"8-bit", 8, pcm.UnsignedInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "f.wav")
			writeEncoded(t, path, 44100, tt.bitDepth, 1)
			r, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer r.Close()
			f := r.Format()
			if f.BitDepth != tt.bitDepth || f.Encoding != tt.encoding {
				t.Errorf("Format = %+v, want %d-bit %s", f, tt.bitDepth, tt.encoding)
			}
			if f.IsS16LE() {
				t.Error("format reported as 16-bit PCM")
			}
		})
	}
}

func TestOpenRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.wav")
	if err := os.WriteFile(path, bytes.Repeat([]byte("not a riff file "), 8), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, ErrNotWAV) {
		t.Errorf("Open = %v, want ErrNotWAV", err)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Open of missing file succeeded")
	}
}

func TestWriteFileErrors(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(filepath.Join(dir, "a.wav"), pcm.S16LE(8000, 2), make([]byte, 6)); err == nil {
		t.Error("partial frame: expected error")
	}
	bad := pcm.Format{SampleRate: 8000, Channels: 1, BitDepth: 24, Encoding: pcm.SignedInt}
	if err := WriteFile(filepath.Join(dir, "b.wav"), bad, make([]byte, 6)); !errors.Is(err, pcm.ErrUnsupportedFormat) {
		t.Errorf("24-bit: got %v, want ErrUnsupportedFormat", err)
	}
}
