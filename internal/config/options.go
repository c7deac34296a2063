// SPDX-License-Identifier: MIT
package config

import (
	"spectrum/internal/audio"
	applog "spectrum/internal/log"
	"spectrum/internal/pcm"
	"spectrum/internal/spectrum"
)

// Level resolves the effective log level. Debug forces LevelDebug.
func (c *Config) Level() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// EngineOptions maps the configuration onto audio.Options.
func (c *Config) EngineOptions() (audio.Options, error) {
	w, err := spectrum.ParseWindow(c.Spectrum.Window)
	if err != nil {
		return audio.Options{}, err
	}
	opts := audio.DefaultOptions()
	opts.BufferDuration = c.Audio.BufferDuration
	opts.NotifyInterval = c.Audio.NotifyInterval
	opts.LevelWindow = c.Audio.LevelWindow
	opts.WaveformWindow = c.Audio.WaveformWindow
	opts.SpectrumLength = c.Spectrum.Length
	opts.Window = w
	opts.Multiplier = c.Spectrum.Multiplier
	opts.HighFrequency = c.Spectrum.HighFreq
	opts.InputDevice = c.Audio.InputDevice
	opts.OutputDevice = c.Audio.OutputDevice
	opts.DumpDir = c.Recording.DumpDir
	if c.Audio.SampleRate > 0 {
		channels := c.Audio.Channels
		if channels == 0 {
			channels = 1
		}
		opts.PreferredFormat = pcm.S16LE(c.Audio.SampleRate, channels)
	}
	return opts, nil
}
