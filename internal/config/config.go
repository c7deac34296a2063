// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults for a configuration with no file present.
const (
	DefaultConfigFile       = "config.yaml"
	DefaultLogLevel         = "info"
	DefaultDeviceID         = -1 // system default device
	DefaultOutputBackend    = "portaudio"
	DefaultFramesPerBuffer  = 1024
	DefaultSpectrumLength   = 4096
	DefaultWindow           = "hann"
	DefaultMultiplier       = 0.15
	DefaultHighFreq         = 1000.0
	DefaultBands            = 10
	DefaultToneFrequency    = 1000.0
	DefaultToneAmplitude    = 0.5
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz
)

// Config represents the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level" validate:"oneof=debug info warn warning error fatal"`
	Audio     AudioConfig     `yaml:"audio"`
	Spectrum  SpectrumConfig  `yaml:"spectrum"`
	Tone      ToneConfig      `yaml:"tone"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds device selection and engine timing.
type AudioConfig struct {
	InputDevice     int    `yaml:"input_device" validate:"gte=-1"`
	OutputDevice    int    `yaml:"output_device" validate:"gte=-1"`
	OutputBackend   string `yaml:"output_backend" validate:"oneof=portaudio oto"`
	SampleRate      int    `yaml:"sample_rate" validate:"gte=0,lte=192000"` // preferred rate, 0 = negotiate
	Channels        int    `yaml:"channels" validate:"gte=0,lte=32"`        // preferred channels, 0 = negotiate
	FramesPerBuffer int    `yaml:"frames_per_buffer" validate:"gt=0,lte=8192"`
	LowLatency      bool   `yaml:"low_latency"`

	BufferDuration time.Duration `yaml:"buffer_duration" validate:"gt=0"`
	NotifyInterval time.Duration `yaml:"notify_interval" validate:"gt=0"`
	LevelWindow    time.Duration `yaml:"level_window" validate:"gt=0"`
	WaveformWindow time.Duration `yaml:"waveform_window" validate:"gt=0"`
}

// SpectrumConfig holds transform and display band settings.
type SpectrumConfig struct {
	Length     int     `yaml:"length" validate:"gte=64,lte=65536,pow2"`
	Window     string  `yaml:"window" validate:"oneof=none hann"`
	Multiplier float64 `yaml:"multiplier" validate:"gt=0"`
	LowFreq    float64 `yaml:"low_freq" validate:"gte=0"`
	HighFreq   float64 `yaml:"high_freq" validate:"gtfield=LowFreq"`
	Bands      int     `yaml:"bands" validate:"gt=0,lte=512"`
}

// ToneConfig is the tone played by the tone command.
type ToneConfig struct {
	Frequency float64 `yaml:"frequency" validate:"gt=0"`
	Amplitude float64 `yaml:"amplitude" validate:"gte=0,lte=1"`
}

// RecordingConfig controls the WAV dump of captured audio.
type RecordingConfig struct {
	DumpDir string `yaml:"dump_dir"`
}

// TransportConfig holds settings for publishing engine events over the network.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address" validate:"required_if=WebSocketEnabled true"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address" validate:"required_if=UDPEnabled true"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			OutputBackend:   DefaultOutputBackend,
			FramesPerBuffer: DefaultFramesPerBuffer,
			BufferDuration:  10 * time.Second,
			NotifyInterval:  time.Second,
			LevelWindow:     100 * time.Millisecond,
			WaveformWindow:  500 * time.Millisecond,
		},
		Spectrum: SpectrumConfig{
			Length:     DefaultSpectrumLength,
			Window:     DefaultWindow,
			Multiplier: DefaultMultiplier,
			HighFreq:   DefaultHighFreq,
			Bands:      DefaultBands,
		},
		Tone: ToneConfig{
			Frequency: DefaultToneFrequency,
			Amplitude: DefaultToneAmplitude,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
	}
}
