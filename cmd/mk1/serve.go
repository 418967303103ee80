package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ingyamilmolinar/mk1/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Play the instrument and accept commands over HTTP, OSC and MIDI",
	Example: "mk1 serve\n" +
		"mk1 serve --output null --http :7400 --osc ''\n" +
		"mk1 serve --midi 'Launchkey Mini' --preset boom-bap",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("http", "", "HTTP listen address, empty string disables")
	f.String("osc", "", "OSC listen address, empty string disables")
	f.String("midi", "", "MIDI input port name")
	_ = viper.BindPFlag("server.http_addr", f.Lookup("http"))
	_ = viper.BindPFlag("server.osc_addr", f.Lookup("osc"))
	_ = viper.BindPFlag("server.midi_port", f.Lookup("midi"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctl, err := newInstrument()
	if err != nil {
		return err
	}
	defer ctl.Close()
	out, err := openOutput(ctl.Audio())
	if err != nil {
		return err
	}
	defer out.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctl.Run(ctx) })
	if cfg.Presets.Watch {
		g.Go(func() error { return ctl.WatchPresets(ctx) })
	}
	if addr := cfg.Server.HTTPAddr; addr != "" {
		h := service.NewHTTP(ctl, logger)
		g.Go(func() error { return h.ListenAndServe(ctx, addr) })
	}
	if addr := cfg.Server.OSCAddr; addr != "" {
		o := service.NewOSC(ctl, logger)
		g.Go(func() error { return o.ListenAndServe(ctx, addr) })
	}
	if port := cfg.Server.MIDIPort; port != "" {
		m := service.NewMIDI(ctl, ctl.Audio().Params(), service.DefaultCC, logger)
		g.Go(func() error { return m.Listen(ctx, port) })
	}
	logger.Info("mk1 ready", "output", cfg.Audio.Output, "bpm", ctl.Sequencer().BPM())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
