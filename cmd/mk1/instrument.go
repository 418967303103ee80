package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gap "github.com/muesli/go-app-paths"

	"github.com/ingyamilmolinar/mk1/internal/audio"
	"github.com/ingyamilmolinar/mk1/internal/mk1"
	"github.com/ingyamilmolinar/mk1/internal/preset"
)

func samplesDir() (string, error) {
	return gap.NewScope(gap.User, "mk1").DataPath("samples")
}

func openStore() (*preset.Store, error) {
	dir := cfg.Presets.Dir
	if dir == "" {
		d, err := preset.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("find presets directory: %w", err)
		}
		dir = d
	}
	return preset.NewStore(dir, logger)
}

// newInstrument builds the engine and controller from cfg. Samples that fail
// to load are skipped with a warning.
func newInstrument() (*mk1.Controller, error) {
	eng := audio.New(audio.Config{
		SampleRate: cfg.Audio.SampleRate,
		MaxVoices:  cfg.Audio.MaxVoices,
		Logger:     logger,
	})
	registerSamples(eng)

	store, err := openStore()
	if err != nil {
		return nil, err
	}
	ctl := mk1.New(mk1.Config{
		Audio:      eng,
		Presets:    store,
		Quantize:   cfg.Looper.Quantize,
		MaxCapture: cfg.Looper.MaxCapture,
		RateLimit:  cfg.Server.RateLimit,
		Burst:      cfg.Server.Burst,
		DwellSeed:  cfg.Dwell.Seed,
		Logger:     logger,
	})
	ctl.SetBPM(cfg.Audio.BPM)
	if cfg.Presets.Load != "" {
		if err := ctl.ApplyPreset(cfg.Presets.Load); err != nil {
			ctl.Close()
			return nil, err
		}
		// an explicit --bpm beats the preset tempo
		if rootCmd.PersistentFlags().Changed("bpm") {
			ctl.SetBPM(cfg.Audio.BPM)
		}
	}
	return ctl, nil
}

func registerSamples(eng *audio.Engine) {
	dir, err := samplesDir()
	if err != nil {
		logger.Warnf("samples: %v", err)
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("samples: %v", err)
		}
		return
	}
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".wav")
		if e.IsDir() || !ok {
			continue
		}
		if err := eng.RegisterWAV(id, filepath.Join(dir, e.Name())); err != nil {
			logger.Warnf("sample %s skipped: %v", id, err)
		}
	}
}

func openOutput(eng *audio.Engine) (audio.Output, error) {
	if cfg.Audio.Output == "null" {
		return audio.NewNullOutput(eng), nil
	}
	out, err := audio.OpenOto(eng, audio.OutputConfig{
		SampleRate: cfg.Audio.SampleRate,
		BufferSize: cfg.Audio.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device (try --output null): %w", err)
	}
	return out, nil
}
