package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ingyamilmolinar/mk1/internal/ui"
)

var dwellCmd = &cobra.Command{
	Use:     "dwell",
	Aliases: []string{"pad"},
	Short:   "Open the dwell pad window",
	Long: "Open the dwell pad window. Move the cursor to steer the dwell layer,\n" +
		"space starts or stops it, 1-8 play the drums and enter toggles the sequencer.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() { _ = ctl.Run(ctx) }()
		if cfg.Presets.Watch {
			go func() {
				if err := ctl.WatchPresets(ctx); err != nil {
					logger.Warnf("preset watch: %v", err)
				}
			}()
		}
		return ui.Run(ui.NewPad(ctl, logger, 720, 540), "mk1")
	},
}
