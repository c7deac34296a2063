// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"io"
	"math"

	"spectrum/internal/device"
	applog "spectrum/internal/log"
	"spectrum/internal/pcm"
	"spectrum/internal/spectrum"
)

// audioNotify advances the position cursors and runs level and spectrum analysis
// over the most recent windows. It runs once per notify interval while the active
// device is running.
func (e *Engine) audioNotify() {
	switch e.mode {
	case InputMode:
		e.setRecordPosition(min(e.bufferLength, e.format.BytesForDuration(e.input.Processed())), false)
		if levelPos := e.dataLength - e.levelBufferLength; levelPos >= 0 {
			e.calculateLevel(levelPos, e.levelBufferLength)
		}
		if e.dataLength >= e.spectrumBufferLength {
			e.calculateSpectrum(e.dataLength - e.spectrumBufferLength)
		}
		e.emit(BufferChanged{Position: 0, Length: e.dataLength, Data: e.buffer[:e.dataLength]})

	case OutputMode:
		playPos := e.format.BytesForDuration(e.output.Processed())
		e.setPlayPosition(min(e.bufferLength, playPos), false)
		levelPos := playPos - e.levelBufferLength
		spectrumPos := playPos - e.spectrumBufferLength

		if e.file != nil {
			if levelPos > e.bufferPosition ||
				spectrumPos > e.bufferPosition ||
				max(e.levelBufferLength, e.spectrumBufferLength) > e.dataLength {
				e.stageFile(levelPos, spectrumPos)
			}
		} else if playPos >= e.dataLength {
			e.stopPlayback()
		}

		end := e.bufferPosition + e.dataLength
		if levelPos >= 0 && levelPos+e.levelBufferLength < end {
			e.calculateLevel(levelPos, e.levelBufferLength)
		}
		if spectrumPos >= 0 && spectrumPos+e.spectrumBufferLength < end {
			e.calculateSpectrum(spectrumPos)
		}
	}
}

// stageFile reads the part of the analysis file covering both windows, plus
// waveform slack, into the buffer.
func (e *Engine) stageFile(levelPos, spectrumPos int64) {
	e.bufferPosition = 0
	e.dataLength = 0

	readPos := max(0, min(levelPos, spectrumPos))
	readEnd := min(e.analysisFile.DataLength(),
		max(levelPos+e.levelBufferLength, spectrumPos+e.spectrumBufferLength))
	readLen := readEnd - readPos + e.format.BytesForDuration(e.opts.WaveformWindow)
	if readLen <= 0 {
		return
	}
	if int64(cap(e.buffer)) < readLen {
		e.buffer = make([]byte, readLen)
	}
	e.buffer = e.buffer[:readLen]

	n, err := e.analysisFile.ReadAt(e.buffer, readPos)
	if err != nil && !errors.Is(err, io.EOF) {
		applog.Errorf("Engine: stage file at %d: %v", readPos, err)
	}
	e.bufferPosition = readPos
	e.dataLength = int64(n)
	e.emit(BufferChanged{Position: e.bufferPosition, Length: e.dataLength, Data: e.buffer[:n]})
}

// audioDataReady appends captured bytes to the buffer and stops recording once it
// is full.
func (e *Engine) audioDataReady() {
	n := min(int64(e.input.BytesAvailable()), e.bufferLength-e.dataLength)
	if n > 0 {
		read, err := e.input.Read(e.buffer[e.dataLength : e.dataLength+n])
		if err != nil && !errors.Is(err, io.EOF) {
			applog.Errorf("Engine: read input: %v", err)
		}
		if read > 0 {
			e.dataLength += int64(read)
			e.emit(DataLengthChanged{Length: e.dataLength})
		}
	}
	if e.dataLength == e.bufferLength {
		e.stopRecording()
	}
}

// audioStateChanged mirrors the active device's state. Notifications from a device
// other than the one serving the current mode are ignored.
func (e *Engine) audioStateChanged(source any) {
	dev := e.activeDevice()
	if dev == nil || source != any(dev) {
		return
	}
	state := dev.State()
	if e.mode == OutputMode && state == device.Idle && (e.file == nil || e.file.AtEnd()) {
		// Playback ran out of data.
		e.stopPlayback()
		state = dev.State()
	}
	if state == device.Stopped {
		if err := dev.Error(); err != device.NoError {
			applog.Errorf("Engine: %s device stopped: %v", e.mode, err)
			e.emit(ErrorMessage{Heading: HeadingAudioIOError, Detail: err.Error()})
			e.Reset()
			return
		}
	}
	e.setState(e.mode, state)
}

// calculateLevel computes RMS and peak over [pos, pos+length) of the stream.
func (e *Engine) calculateLevel(pos, length int64) {
	if pos < e.bufferPosition || pos+length > e.bufferPosition+e.dataLength || length < 2 {
		applog.Errorf("Engine: level window [%d,+%d) outside staged data [%d,+%d)",
			pos, length, e.bufferPosition, e.dataLength)
		return
	}
	window := e.buffer[pos-e.bufferPosition : pos-e.bufferPosition+length]
	numSamples := len(window) / 2

	var peak, sum float64
	for i := 0; i < numSamples; i++ {
		v := math.Abs(pcm.ToReal(pcm.SampleAt(window, i*2)))
		peak = max(peak, v)
		sum += v * v
	}
	rms := min(1, math.Sqrt(sum/float64(numSamples)))
	e.setLevel(rms, min(1, peak), numSamples)
}

// calculateSpectrum submits the block starting at pos for analysis if the
// analyser is free.
func (e *Engine) calculateSpectrum(pos int64) {
	if pos < e.bufferPosition || pos+e.spectrumBufferLength > e.bufferPosition+e.dataLength {
		applog.Errorf("Engine: spectrum block at %d outside staged data [%d,+%d)",
			pos, e.bufferPosition, e.dataLength)
		return
	}
	if !e.analyser.IsReady() {
		return
	}
	e.spectrumPosition = pos
	offset := pos - e.bufferPosition
	e.analyser.Calculate(e.buffer[offset:offset+e.spectrumBufferLength], e.format)
}

func (e *Engine) spectrumReady(r spectrum.Result) {
	s, ok := e.analyser.Complete(r)
	if !ok {
		return
	}
	e.emit(SpectrumChanged{Position: e.spectrumPosition, Length: e.spectrumBufferLength, Spectrum: s})
}
