// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"

	"spectrum/internal/device"
	applog "spectrum/internal/log"
	"spectrum/internal/pcm"
	"spectrum/internal/spectrum"
	"spectrum/internal/wavfile"
)

// LoadFile resets the engine and prepares path for playback. The file must hold
// signed 16-bit PCM. Failures are reported through ErrorMessage.
func (e *Engine) LoadFile(path string) bool {
	e.Reset()

	file, err := wavfile.Open(path)
	if err != nil {
		applog.Warnf("Engine: open %s: %v", path, err)
		e.emit(ErrorMessage{Heading: HeadingCouldNotOpenFile, Detail: path})
		return false
	}
	if !file.Format().IsS16LE() {
		file.Close()
		e.emit(ErrorMessage{Heading: HeadingFormatNotSupported, Detail: file.Format().String()})
		return false
	}

	e.file = file
	if !e.initialize(false) {
		e.closeFiles()
		return false
	}

	analysis, err := wavfile.Open(path)
	if err != nil {
		applog.Errorf("Engine: open analysis handle for %s: %v", path, err)
		e.emit(ErrorMessage{Heading: HeadingCouldNotOpenFile, Detail: path})
		e.Reset()
		return false
	}
	e.analysisFile = analysis
	applog.Infof("Engine: loaded %s (%s, %d bytes)", path, e.format, file.DataLength())
	return true
}

// GenerateTone resets the engine and fills the buffer with tone.
func (e *Engine) GenerateTone(tone pcm.Tone) bool {
	e.Reset()
	e.generateTone = true
	e.tone = tone.Swept()
	return e.initialize(false)
}

// GenerateSweptTone resets the engine and fills the buffer with a tone sweeping
// from 1 Hz to the lesser of the configured high frequency and Nyquist.
func (e *Engine) GenerateSweptTone(amplitude float64) bool {
	e.Reset()
	e.generateTone = true
	e.tone = pcm.SweptTone{StartFreq: 1, EndFreq: 0, Amplitude: amplitude}
	return e.initialize(false)
}

// InitializeRecord resets the engine and prepares the capture device.
func (e *Engine) InitializeRecord() bool {
	e.Reset()
	e.generateTone = false
	e.tone = pcm.SweptTone{}
	return e.initialize(false)
}

// StartRecording resumes a suspended recording or starts a new one into an empty
// buffer.
func (e *Engine) StartRecording() {
	if e.input == nil {
		return
	}
	if e.mode == InputMode && e.state == device.Suspended {
		if err := e.input.Resume(); err != nil {
			applog.Errorf("Engine: resume input: %v", err)
		}
		return
	}

	e.analyser.CancelCalculation()
	e.emit(SpectrumChanged{})
	e.setLevel(0, 0, 0)
	clear(e.buffer)
	e.setRecordPosition(0, true)
	e.stopPlayback()
	e.mode = InputMode
	e.dataLength = 0
	e.emit(DataLengthChanged{Length: 0})
	if err := e.input.Start(); err != nil {
		// The device reports the failure through a state change.
		applog.Errorf("Engine: start input: %v", err)
	}
}

// StartPlayback resumes suspended playback or plays the file or buffer from
// the start.
func (e *Engine) StartPlayback() {
	if e.output == nil {
		return
	}
	if e.mode == OutputMode && e.state == device.Suspended {
		if err := e.output.Resume(); err != nil {
			applog.Errorf("Engine: resume output: %v", err)
		}
		return
	}

	e.analyser.CancelCalculation()
	e.emit(SpectrumChanged{})
	e.setLevel(0, 0, 0)
	e.setPlayPosition(0, true)
	e.stopRecording()
	// The old stream may still be pulling from the file.
	e.stopPlayback()
	e.mode = OutputMode

	var err error
	if e.file != nil {
		if err = e.file.Rewind(); err != nil {
			applog.Errorf("Engine: rewind: %v", err)
		}
		e.bufferPosition = 0
		e.dataLength = 0
		err = e.output.Start(e.file)
	} else {
		err = e.output.Start(bytes.NewReader(e.buffer[:e.dataLength]))
	}
	if err != nil {
		applog.Errorf("Engine: start output: %v", err)
	}
}

// Suspend pauses the active device. It does nothing unless the device is
// running.
func (e *Engine) Suspend() {
	if e.state != device.Active && e.state != device.Idle {
		return
	}
	dev := e.activeDevice()
	if dev == nil {
		return
	}
	if err := dev.Suspend(); err != nil {
		applog.Errorf("Engine: suspend %s: %v", e.mode, err)
	}
}

// SetAudioInputDevice selects the capture device, reinitializing if it changed.
func (e *Engine) SetAudioInputDevice(id int) {
	if id == e.inputID {
		return
	}
	e.inputID = id
	e.reinitialize()
}

// SetAudioOutputDevice selects the playback device, reinitializing if it changed.
func (e *Engine) SetAudioOutputDevice(id int) {
	if id == e.outputID {
		return
	}
	e.outputID = id
	e.reinitialize()
}

// reinitialize reopens devices for the current source after a device change.
func (e *Engine) reinitialize() {
	if !e.format.IsValid() {
		return
	}
	e.stopRecording()
	e.stopPlayback()
	e.initialize(true)
}

// SetWindowFunction selects the window for subsequent spectrum calculations.
func (e *Engine) SetWindowFunction(w spectrum.Window) {
	e.analyser.SetWindowFunction(w)
}

// Reset stops both devices, releases them and clears the buffer and all
// positions.
func (e *Engine) Reset() {
	e.stopRecording()
	e.stopPlayback()
	e.setState(InputMode, device.Stopped)
	e.setFormat(pcm.Format{})
	e.generateTone = false
	e.closeFiles()
	e.buffer = nil
	e.bufferPosition = 0
	e.bufferLength = 0
	e.dataLength = 0
	e.emit(DataLengthChanged{Length: 0})
	e.resetAudioDevices()
	e.analyser.CancelCalculation()
	e.emit(SpectrumChanged{})
}

func (e *Engine) closeFiles() {
	if e.file != nil {
		e.file.Close()
		e.file = nil
	}
	if e.analysisFile != nil {
		e.analysisFile.Close()
		e.analysisFile = nil
	}
}

func (e *Engine) resetAudioDevices() {
	if e.input != nil {
		e.input.Close()
		e.input = nil
	}
	e.setRecordPosition(0, false)
	if e.output != nil {
		e.output.Close()
		e.output = nil
	}
	e.setPlayPosition(0, false)
	e.spectrumPosition = 0
	e.setLevel(0, 0, 0)
}

// initialize negotiates a format for the current source and, when it changed or
// force is set, rebuilds the buffer and reopens the devices.
func (e *Engine) initialize(force bool) bool {
	prev := e.format
	if !e.selectFormat() {
		switch {
		case e.file != nil:
			e.emit(ErrorMessage{Heading: HeadingFormatNotSupported, Detail: e.file.Format().String()})
		case e.generateTone:
			e.emit(ErrorMessage{Heading: HeadingNoSuitableFormat})
		default:
			e.emit(ErrorMessage{Heading: HeadingNoCommonFormat})
		}
		return false
	}
	if e.format == prev && !force {
		return true
	}

	e.resetAudioDevices()
	switch {
	case e.file != nil:
		e.bufferLength = e.file.DataLength()
		e.emit(BufferLengthChanged{Length: e.bufferLength})
		e.emit(DataLengthChanged{Length: e.dataLength})
		e.emit(BufferChanged{})
		e.setRecordPosition(e.bufferLength, false)

	default:
		e.bufferLength = e.format.BytesForDuration(e.opts.BufferDuration)
		e.buffer = make([]byte, e.bufferLength)
		e.emit(BufferLengthChanged{Length: e.bufferLength})
		if e.generateTone {
			if e.tone.EndFreq == 0 {
				e.tone.EndFreq = min(e.opts.HighFrequency, e.format.Nyquist())
			}
			if err := pcm.GenerateTone(e.tone, e.format, e.buffer); err != nil {
				applog.Errorf("Engine: generate tone: %v", err)
			}
			e.dataLength = e.bufferLength
			e.emit(DataLengthChanged{Length: e.dataLength})
			e.emit(BufferChanged{Position: 0, Length: e.dataLength, Data: e.buffer[:e.dataLength]})
			e.setRecordPosition(e.bufferLength, false)
		} else {
			e.dataLength = 0
			e.emit(BufferChanged{})
			input, err := e.in.OpenInput(e.inputID, e.format, e.deviceNotify)
			if err != nil {
				e.emit(ErrorMessage{Heading: device.OpenError.Error(), Detail: err.Error()})
				return false
			}
			e.input = input
		}
	}

	output, err := e.out.OpenOutput(e.outputID, e.format, e.deviceNotify)
	if err != nil {
		e.emit(ErrorMessage{Heading: device.OpenError.Error(), Detail: err.Error()})
		return false
	}
	e.output = output
	applog.Debugf("Engine: initialized, buffer %d bytes, data %d bytes, format %s", e.bufferLength, e.dataLength, e.format)
	return true
}

// selectFormat picks the engine format. A file dictates its own format; an
// existing format is kept if the devices still accept it; otherwise the
// preferred format and then every standard rate and channel count are probed.
func (e *Engine) selectFormat() bool {
	if e.file != nil {
		f := e.file.Format()
		if !e.out.IsOutputFormatSupported(e.outputID, f) {
			return false
		}
		e.setFormat(f)
		return true
	}
	if e.format.IsValid() {
		return e.supports(e.format)
	}

	for _, f := range e.candidateFormats() {
		if e.supports(f) {
			e.setFormat(f)
			return true
		}
	}
	e.setFormat(pcm.Format{})
	return false
}

func (e *Engine) supports(f pcm.Format) bool {
	if !e.out.IsOutputFormatSupported(e.outputID, f) {
		return false
	}
	if e.generateTone {
		return true
	}
	return e.in != nil && e.in.IsInputFormatSupported(e.inputID, f)
}

func (e *Engine) candidateFormats() []pcm.Format {
	var formats []pcm.Format
	if e.opts.PreferredFormat.IsS16LE() {
		formats = append(formats, e.opts.PreferredFormat)
	}
	maxChannels := e.maxChannels()
	for _, rate := range device.StandardSampleRates {
		for ch := 1; ch <= maxChannels; ch++ {
			formats = append(formats, pcm.S16LE(rate, ch))
		}
	}
	return formats
}

// maxChannels is the largest channel count either selected device offers.
func (e *Engine) maxChannels() int {
	n := 0
	if outs, err := e.out.OutputDevices(); err == nil {
		if d, ok := device.Find(outs, e.outputID, false); ok {
			n = max(n, d.MaxOutputChannels)
		}
	}
	if e.in != nil && !e.generateTone {
		if ins, err := e.in.InputDevices(); err == nil {
			if d, ok := device.Find(ins, e.inputID, true); ok {
				n = max(n, d.MaxInputChannels)
			}
		}
	}
	if n == 0 {
		return 2
	}
	return n
}

func (e *Engine) stopRecording() {
	if e.input == nil {
		return
	}
	running := e.input.State() != device.Stopped
	if err := e.input.Stop(); err != nil {
		applog.Errorf("Engine: stop input: %v", err)
	}
	if running && e.opts.DumpDir != "" && e.dataLength > 0 {
		e.dumpRecording()
	}
}

func (e *Engine) stopPlayback() {
	if e.output == nil {
		return
	}
	if err := e.output.Stop(); err != nil {
		applog.Errorf("Engine: stop output: %v", err)
	}
	e.setPlayPosition(0, false)
}

func (e *Engine) setState(mode Mode, state device.State) {
	changed := e.mode != mode || e.state != state
	e.mode, e.state = mode, state
	if changed {
		applog.Debugf("Engine: state %s/%s", mode, state)
		e.emit(StateChanged{Mode: mode, State: state})
	}
}

func (e *Engine) setFormat(f pcm.Format) {
	changed := f != e.format
	e.format = f
	e.levelBufferLength = f.BytesForDuration(e.opts.LevelWindow)
	e.spectrumBufferLength = int64(e.analyser.Length() * f.BytesPerFrame())
	if changed {
		e.emit(FormatChanged{Format: f})
		if f.IsValid() {
			e.emit(InfoMessage{Text: f.String()})
		}
	}
}

func (e *Engine) setRecordPosition(pos int64, force bool) {
	changed := pos != e.recordPosition
	e.recordPosition = pos
	if changed || force {
		e.emit(RecordPositionChanged{Position: pos})
	}
}

func (e *Engine) setPlayPosition(pos int64, force bool) {
	changed := pos != e.playPosition
	e.playPosition = pos
	if changed || force {
		e.emit(PlayPositionChanged{Position: pos})
	}
}

func (e *Engine) setLevel(rms, peak float64, numSamples int) {
	e.rmsLevel, e.peakLevel = rms, peak
	e.emit(LevelChanged{RMS: rms, Peak: peak, NumSamples: numSamples})
}
