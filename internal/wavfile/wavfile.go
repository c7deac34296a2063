// SPDX-License-Identifier: MIT
/*
Package wavfile reads and writes RIFF/WAVE PCM files.

Reader parses the header with go-audio/wav and then serves raw little-endian bytes
from the data chunk, so playback and analysis see exactly what is on disk. Offsets
passed to Seek and returned by Pos are absolute file offsets; the PCM payload
starts at HeaderLength.
*/
package wavfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"spectrum/internal/pcm"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned for files without a RIFF/WAVE header or data chunk.
var ErrNotWAV = errors.New("not a WAV file")

const formatPCM = 1 // WAVE_FORMAT_PCM
const formatFloat = 3

// Reader is an open WAV file. Read and Pos may be used from a playback goroutine
// while another goroutine polls Pos or AtEnd.
type Reader struct {
	f            *os.File
	format       pcm.Format
	headerLength int64
	dataLength   int64
	size         int64
	pos          atomic.Int64
}

var _ io.ReadCloser = (*Reader)(nil)

// Open parses the header of path and positions the reader at the start of the
// PCM payload.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newReader(f *os.File) (*Reader, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if d.PCMChunk == nil {
		return nil, ErrNotWAV
	}
	header, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		f:            f,
		format:       formatOf(d),
		headerLength: header,
		size:         st.Size(),
	}
	r.dataLength = min(int64(d.PCMChunk.Size), r.size-header)
	r.dataLength -= r.dataLength % int64(max(r.format.BytesPerFrame(), 1))
	r.pos.Store(header)
	return r, nil
}

func formatOf(d *wav.Decoder) pcm.Format {
	f := pcm.Format{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}
	switch {
	case d.WavAudioFormat == formatFloat:
		f.Encoding = pcm.Float
	case d.WavAudioFormat != formatPCM:
		f.Encoding = pcm.UnknownEncoding
	case f.BitDepth == 8:
		f.Encoding = pcm.UnsignedInt
	default:
		f.Encoding = pcm.SignedInt
	}
	return f
}

// Format is the sample format declared by the header.
func (r *Reader) Format() pcm.Format { return r.format }

// HeaderLength is the file offset of the first PCM byte.
func (r *Reader) HeaderLength() int64 { return r.headerLength }

// DataLength is the number of whole-frame PCM bytes in the data chunk.
func (r *Reader) DataLength() int64 { return r.dataLength }

// Size is the size of the file on disk.
func (r *Reader) Size() int64 { return r.size }

// Pos is the current absolute file offset.
func (r *Reader) Pos() int64 { return r.pos.Load() }

// AtEnd reports whether the whole data chunk has been read.
func (r *Reader) AtEnd() bool {
	return r.pos.Load() >= r.headerLength+r.dataLength
}

// Seek moves to the absolute file offset pos, clamped to the data chunk.
func (r *Reader) Seek(pos int64) error {
	pos = min(max(pos, r.headerLength), r.headerLength+r.dataLength)
	if _, err := r.f.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	r.pos.Store(pos)
	return nil
}

// Rewind moves to the start of the PCM payload.
func (r *Reader) Rewind() error {
	return r.Seek(r.headerLength)
}

// Read reads PCM bytes and returns io.EOF at the end of the data chunk. Trailing
// chunks after the data chunk are never returned.
func (r *Reader) Read(p []byte) (int, error) {
	remaining := r.headerLength + r.dataLength - r.pos.Load()
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.f.Read(p)
	r.pos.Add(int64(n))
	return n, err
}

// ReadAt fills p from the PCM payload at data offset off without moving the
// reader. It returns the number of bytes read, short only at the end of data.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.dataLength {
		return 0, io.EOF
	}
	if int64(len(p)) > r.dataLength-off {
		p = p[:r.dataLength-off]
	}
	n, err := r.f.ReadAt(p, r.headerLength+off)
	if errors.Is(err, io.EOF) && n == len(p) {
		err = nil
	}
	return n, err
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.f.Close()
}
