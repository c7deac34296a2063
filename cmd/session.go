// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/device"
	"spectrum/internal/device/oto"
	"spectrum/internal/device/portaudio"
	applog "spectrum/internal/log"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
	"spectrum/internal/tui"
	"spectrum/pkg/build"

	"golang.org/x/sync/errgroup"
)

const (
	otoBufferSize   = 100 * time.Millisecond
	waveformColumns = 64
)

// backends opens PortAudio and returns the input and output backends the
// configuration asks for. The returned function terminates PortAudio.
func backends(cfg *config.Config) (device.InputBackend, device.OutputBackend, func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, nil, nil, err
	}
	terminate := func() {
		if err := portaudio.Terminate(); err != nil {
			applog.Errorf("%v", err)
		}
	}

	pa := portaudio.New(cfg.Audio.FramesPerBuffer, cfg.Audio.LowLatency)
	var out device.OutputBackend = pa
	if cfg.Audio.OutputBackend == "oto" {
		out = oto.New(otoBufferSize)
	}
	return pa, out, terminate, nil
}

// publishers builds the network side of a session from the configuration. Both
// return values may be nil.
func publishers(cfg *config.Config) (*transport.Forwarder, *udp.Publisher, error) {
	var ts []transport.Transport
	if cfg.Debug {
		ts = append(ts, transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err := ws.Start(); err != nil {
			return nil, nil, err
		}
		ts = append(ts, ws)
	}
	var fwd *transport.Forwarder
	if len(ts) > 0 {
		fwd = transport.NewForwarder(ts...)
	}

	var pub *udp.Publisher
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err == nil {
			pub, err = udp.NewPublisher(cfg.Transport.UDPSendInterval, sender)
		}
		if err != nil {
			if fwd != nil {
				fwd.Close()
			}
			return nil, nil, err
		}
	}
	return fwd, pub, nil
}

// finishWatcher cancels a headless session once the engine goes from running
// back to stopped: the recording buffer filled or playback reached the end.
type finishWatcher struct {
	cancel  context.CancelFunc
	started bool
}

func (w *finishWatcher) HandleEvent(ev audio.Event) {
	sc, ok := ev.(audio.StateChanged)
	if !ok {
		return
	}
	switch sc.State {
	case device.Active, device.Idle, device.Suspended:
		w.started = true
	case device.Stopped:
		if w.started {
			applog.Infof("Session: %s finished", sc.Mode)
			w.cancel()
		}
	}
}

// errorLogger mirrors engine error messages into the log.
type errorLogger struct{}

func (errorLogger) HandleEvent(ev audio.Event) {
	if e, ok := ev.(audio.ErrorMessage); ok {
		applog.Errorf("%s: %s", e.Heading, e.Detail)
	}
}

// runSession builds an engine, lets prepare set it up, then runs the engine
// loop, the publishers and the monitor until the user quits or a signal
// arrives.
func runSession(ctx context.Context, cfg *config.Config, opts *options, title string, prepare func(*audio.Engine) error) error {
	info := build.GetBuildFlags()
	applog.Infof("%s starting (instance %s)", info, info.Instance)

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	in, out, terminate, err := backends(cfg)
	if err != nil {
		return err
	}
	defer terminate()

	engine, err := audio.NewEngine(engineOpts, in, out)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	views := tui.NewViews(engine, cfg.Spectrum.Bands, cfg.Spectrum.LowFreq, cfg.Spectrum.HighFreq, waveformColumns)
	engine.Subscribe(errorLogger{})
	if opts.headless {
		engine.Subscribe(&finishWatcher{cancel: cancel})
	}

	fwd, pub, err := publishers(cfg)
	if err != nil {
		return err
	}
	if fwd != nil {
		engine.Subscribe(fwd)
		defer fwd.Close()
	}
	if pub != nil {
		engine.Subscribe(pub)
	}

	if err := prepare(engine); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	if pub != nil {
		pub.Start()
		g.Go(func() error {
			<-gctx.Done()
			return pub.Close()
		})
	}
	if !opts.headless {
		g.Go(func() error {
			defer cancel()
			monitor := tui.NewMonitorModel(title, engine, views, engineOpts.Window)
			return tui.RunMonitor(gctx, monitor)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Run has returned, so the engine may be used from here again.
	if opts.savePath != "" {
		if err := engine.SaveRecording(opts.savePath); err != nil {
			return fmt.Errorf("save recording: %w", err)
		}
		fmt.Printf("Recording saved to: %s\n", opts.savePath)
	}
	return nil
}
