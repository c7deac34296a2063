// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"

	"spectrum/internal/audio"
	"spectrum/internal/config"
	applog "spectrum/internal/log"
	"spectrum/internal/pcm"
	"spectrum/pkg/build"

	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	configPath   string
	inputDevice  int
	outputDevice int
	verbose      bool
	headless     bool

	savePath  string
	frequency float64
	amplitude float64
	sweep     bool
}

// Execute parses args and runs the selected command.
func Execute(ctx context.Context, args []string) error {
	root := newRootCommand(&options{})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(opts *options) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		// Without a subcommand the analyser opens in record mode, idle until
		// the user starts recording.
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), cfg, opts, "Record", func(e *audio.Engine) error {
				e.InitializeRecord()
				return nil
			})
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to the YAML configuration file (default ./config.yaml when present)")
	rootCmd.PersistentFlags().IntVarP(&opts.inputDevice, "input", "i", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&opts.outputDevice, "output", "o", config.DefaultDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")
	rootCmd.PersistentFlags().BoolVar(&opts.headless, "headless", false,
		"Run without the terminal UI until the session ends or a signal arrives")

	rootCmd.AddCommand(
		newListCommand(opts),
		newPickCommand(opts),
		newRecordCommand(opts),
		newPlayCommand(opts),
		newToneCommand(opts),
	)
	return rootCmd
}

// load reads the configuration and applies command line overrides.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Audio.InputDevice = o.inputDevice
	}
	if flags.Changed("output") {
		cfg.Audio.OutputDevice = o.outputDevice
	}
	if o.verbose {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	applog.SetLevel(cfg.Level())
	return cfg, nil
}

func newRecordCommand(opts *options) *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Capture from the input device and analyse it live",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), cfg, opts, "Record", func(e *audio.Engine) error {
				if !e.InitializeRecord() {
					return fmt.Errorf("no usable input format on device %d", cfg.Audio.InputDevice)
				}
				e.StartRecording()
				return nil
			})
		},
	}
	recordCmd.Flags().StringVarP(&opts.savePath, "save", "s", "",
		"Write the captured buffer to this WAV file on exit")
	return recordCmd
}

func newPlayCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "play FILE",
		Short: "Play a 16-bit PCM WAV file and analyse it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			path := args[0]
			return runSession(cmd.Context(), cfg, opts, "Play: "+path, func(e *audio.Engine) error {
				if !e.LoadFile(path) {
					return fmt.Errorf("cannot play %s", path)
				}
				e.StartPlayback()
				return nil
			})
		},
	}
}

func newToneCommand(opts *options) *cobra.Command {
	toneCmd := &cobra.Command{
		Use:   "tone",
		Short: "Generate a sine tone, play it and analyse it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			tone := toneFromFlags(cmd, opts, cfg)
			title := fmt.Sprintf("Tone: %.0f Hz", tone.Frequency)
			if opts.sweep {
				title = "Tone: sweep"
			}
			return runSession(cmd.Context(), cfg, opts, title, func(e *audio.Engine) error {
				var ok bool
				if opts.sweep {
					ok = e.GenerateSweptTone(tone.Amplitude)
				} else {
					ok = e.GenerateTone(tone)
				}
				if !ok {
					return fmt.Errorf("no usable output format on device %d", cfg.Audio.OutputDevice)
				}
				e.StartPlayback()
				return nil
			})
		},
	}
	toneCmd.Flags().Float64VarP(&opts.frequency, "freq", "f", config.DefaultToneFrequency,
		"Tone frequency in Hertz (Hz)")
	toneCmd.Flags().Float64VarP(&opts.amplitude, "amplitude", "a", config.DefaultToneAmplitude,
		"Tone amplitude, 0 to 1")
	toneCmd.Flags().BoolVar(&opts.sweep, "sweep", false,
		"Sweep from 1 Hz up to the configured high frequency")
	return toneCmd
}

// toneFromFlags starts from the configured tone and applies explicit flags.
func toneFromFlags(cmd *cobra.Command, opts *options, cfg *config.Config) pcm.Tone {
	tone := pcm.Tone{Frequency: cfg.Tone.Frequency, Amplitude: cfg.Tone.Amplitude}
	if cmd.Flags().Changed("freq") {
		tone.Frequency = opts.frequency
	}
	if cmd.Flags().Changed("amplitude") {
		tone.Amplitude = min(max(opts.amplitude, 0), 1)
	}
	return tone
}
