// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"

	"spectrum/internal/config"
	"spectrum/internal/device"
	"spectrum/internal/device/oto"
	"spectrum/internal/device/portaudio"
	"spectrum/internal/tui"

	"github.com/spf13/cobra"
)

func newListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := portaudio.Initialize(); err != nil {
				return err
			}
			defer portaudio.Terminate()

			devices, err := portaudio.HostDevices()
			if err != nil {
				return err
			}
			if cfg.Audio.OutputBackend == "oto" {
				otoDevices, _ := oto.New(otoBufferSize).OutputDevices()
				devices = append(devices, otoDevices...)
			}
			writeDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
}

func writeDevices(w io.Writer, devices []device.Info) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No audio devices found.")
		return
	}
	for _, d := range devices {
		name := d.Name
		switch {
		case d.DefaultInput && d.DefaultOutput:
			name += " [default input/output]"
		case d.DefaultInput:
			name += " [default input]"
		case d.DefaultOutput:
			name += " [default output]"
		}
		fmt.Fprintf(w, "[%d] %s (%s)\n", d.ID, name, d.Kind())
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n",
			d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
	}
}

func newPickCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "pick [input|output]",
		Short:     "Choose a device and sample rate interactively",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"input", "output"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			direction := "input"
			if len(args) == 1 {
				direction = args[0]
			}

			in, out, terminate, err := backends(cfg)
			if err != nil {
				return err
			}
			defer terminate()

			fetch, key := tui.FetchDevices(in.InputDevices), "input_device"
			if direction == "output" {
				fetch, key = out.OutputDevices, "output_device"
			}
			sel, ok, err := tui.PickDevice(pickTitle(direction), fetch)
			if err != nil || !ok {
				return err
			}
			writeSelection(cmd.OutOrStdout(), sel, key)
			return nil
		},
	}
}

func pickTitle(direction string) string {
	if direction == "output" {
		return "Output Devices"
	}
	return "Input Devices"
}

// writeSelection prints the choice as the configuration it corresponds to.
func writeSelection(w io.Writer, sel tui.Selection, key string) {
	fmt.Fprintf(w, "Selected [%d] %s at %d Hz\n\n", sel.Device.ID, sel.Device.Name, sel.SampleRate)
	fmt.Fprintf(w, "Add to %s:\n\naudio:\n  %s: %d\n  sample_rate: %d\n",
		config.DefaultConfigFile, key, sel.Device.ID, sel.SampleRate)
}
