// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	applog "spectrum/internal/log"
	"spectrum/internal/wavfile"

	"github.com/google/uuid"
)

var (
	ErrNoRecording = errors.New("no recorded data")
	ErrFileLoaded  = errors.New("buffer holds a staged file window")
)

// SaveRecording writes the buffer's valid data to path as a WAV file.
func (e *Engine) SaveRecording(path string) error {
	if e.file != nil {
		return ErrFileLoaded
	}
	if e.dataLength == 0 {
		return ErrNoRecording
	}
	if err := wavfile.WriteFile(path, e.format, e.buffer[:e.dataLength]); err != nil {
		return fmt.Errorf("save recording: %w", err)
	}
	applog.Infof("Engine: saved %d bytes to %s", e.dataLength, path)
	return nil
}

// dumpRecording saves the buffer under DumpDir with a unique name.
func (e *Engine) dumpRecording() {
	if err := os.MkdirAll(e.opts.DumpDir, 0o755); err != nil {
		applog.Errorf("Engine: create dump dir: %v", err)
		return
	}
	path := filepath.Join(e.opts.DumpDir, "recording-"+uuid.NewString()+".wav")
	if err := e.SaveRecording(path); err != nil {
		applog.Errorf("Engine: dump recording: %v", err)
	}
}
