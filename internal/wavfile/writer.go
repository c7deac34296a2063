// SPDX-License-Identifier: MIT
package wavfile

import (
	"fmt"
	"os"

	"spectrum/internal/pcm"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// chunkFrames bounds the sample buffer handed to the encoder per write.
const chunkFrames = 4096

// WriteFile writes data, 16-bit little-endian PCM in format f, as a WAV file.
func WriteFile(path string, f pcm.Format, data []byte) (err error) {
	if !f.IsS16LE() {
		return fmt.Errorf("wavfile: %w: %s", pcm.ErrUnsupportedFormat, f)
	}
	frameBytes := f.BytesPerFrame()
	if len(data)%frameBytes != 0 {
		return fmt.Errorf("wavfile: %d bytes is not a whole number of %d-byte frames", len(data), frameBytes)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	enc := wav.NewEncoder(file, f.SampleRate, f.BitDepth, f.Channels, formatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		SourceBitDepth: f.BitDepth,
		Data:           make([]int, chunkFrames*f.Channels),
	}

	for off := 0; off < len(data); {
		n := min(len(data)-off, chunkFrames*frameBytes)
		samples := n / 2
		buf.Data = buf.Data[:samples]
		for i := range samples {
			buf.Data[i] = int(pcm.SampleAt(data, off+i*2))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("wavfile: write %s: %w", path, err)
		}
		off += n
	}
	return enc.Close()
}
