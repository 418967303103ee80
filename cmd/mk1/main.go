// Command mk1 runs the instrument: a drum machine, a mono synth, a four
// slot looper and the dwell layer, played over HTTP, OSC, MIDI or the pad.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ingyamilmolinar/mk1/internal/config"
	"github.com/ingyamilmolinar/mk1/internal/log"
)

var (
	// Version is set at build time.
	Version = ""

	configFile string
	cfg        config.Config
	logger     = log.Discard()

	rootCmd = &cobra.Command{
		Use:           "mk1",
		Short:         "A playable groovebox with a looper and a generative dwell layer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadConfig()
		},
	}
)

func loadConfig() error {
	v := viper.GetViper()
	used, err := config.Setup(v, configFile)
	if err != nil {
		return err
	}
	configFile = used
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c
	logger = log.New(os.Stderr, cfg.Level())
	logger.Debug("configuration loaded", "file", configFile)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mk1:", err)
		os.Exit(1)
	}
}

func init() {
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default is mk1.yml in the user config directory)")
	pf.String("log-level", "", "debug, info, warn, error or none")
	pf.String("output", "", "audio output: oto or null")
	pf.String("preset", "", "preset applied at startup")
	pf.Int("bpm", 0, "tempo in beats per minute")

	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("audio.output", pf.Lookup("output"))
	_ = viper.BindPFlag("presets.load", pf.Lookup("preset"))
	_ = viper.BindPFlag("audio.bpm", pf.Lookup("bpm"))

	rootCmd.AddCommand(serveCmd, dwellCmd, renderCmd, presetsCmd, sampleCmd, configCmd, midiCmd)
}
