package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestEnvDefaultsMatchDefault(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Fatalf("env defaults = %+v\nwant %+v", cfg, Default())
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MK1_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("MK1_LOOPER_MAX_CAPTURE", "30s")
	t.Setenv("MK1_SERVER_MIDI_PORT", "Launchpad")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Looper.MaxCapture != 30*time.Second || cfg.Server.MIDIPort != "Launchpad" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mk1.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
log_level: debug
audio:
  bpm: 96
  output: "null"
  buffer_size: 20ms
server:
  osc_addr: ":9000"
looper:
  quantize: true
dwell:
  seed: 42
`)
	v := viper.New()
	used, err := Setup(v, path)
	if err != nil {
		t.Fatal(err)
	}
	if used != path {
		t.Fatalf("used %s, want %s", used, path)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" || cfg.Audio.BPM != 96 || cfg.Audio.Output != "null" ||
		cfg.Audio.BufferSize != 20*time.Millisecond || cfg.Server.OSCAddr != ":9000" ||
		!cfg.Looper.Quantize || cfg.Dwell.Seed != 42 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Server.HTTPAddr != "127.0.0.1:7400" {
		t.Fatalf("unset keys lost their defaults: %+v", cfg)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	path := writeFile(t, "audio:\n  bpm: 100\n")
	t.Setenv("MK1_AUDIO_BPM", "140")
	v := viper.New()
	if _, err := Setup(v, path); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.BPM != 140 {
		t.Fatalf("bpm = %d, want 140", cfg.Audio.BPM)
	}
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("MK1_AUDIO_BPM", "140")
	v := viper.New()
	v.Set("audio.bpm", 90)
	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.BPM != 90 {
		t.Fatalf("bpm = %d, want 90", cfg.Audio.BPM)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	v := viper.New()
	v.Set("audio.bpm", 500)
	if _, err := Load(v); err == nil || !strings.Contains(err.Error(), "audio.bpm 500") {
		t.Fatalf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 100 }, "audio.sample_rate"},
		{"buffer", func(c *Config) { c.Audio.BufferSize = 0 }, "audio.buffer_size"},
		{"voices", func(c *Config) { c.Audio.MaxVoices = 0 }, "audio.max_voices"},
		{"output", func(c *Config) { c.Audio.Output = "alsa" }, "audio.output"},
		{"device rate", func(c *Config) { c.Audio.SampleRate = 22050 }, "audio.sample_rate"},
		{"bpm", func(c *Config) { c.Audio.BPM = 10 }, "audio.bpm"},
		{"rate", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"burst", func(c *Config) { c.Server.Burst = -1 }, "server.burst"},
		{"capture", func(c *Config) { c.Looper.MaxCapture = time.Hour }, "looper.max_capture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestValidateOfflineRates(t *testing.T) {
	c := Default()
	c.Audio.Output = "null"
	c.Audio.SampleRate = 22050
	if err := c.Validate(); err != nil {
		t.Fatalf("null output at 22050 Hz: %v", err)
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	c := Default()
	c.Audio.BPM = 0
	c.Audio.Output = "jack"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "audio.bpm") || !strings.Contains(err.Error(), "audio.output") {
		t.Fatalf("err = %v", err)
	}
}

func TestSetupWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MK1_CONFIG_HOME", dir)
	v := viper.New()
	path, err := Setup(v, "")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "mk1.yml") {
		t.Fatalf("path = %s", path)
	}

	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}
	v = viper.New()
	if _, err := Setup(v, ""); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Fatalf("default file = %+v\nwant %+v", cfg, Default())
	}
}

func TestWriteDefaultRejectsExtension(t *testing.T) {
	if err := WriteDefault(filepath.Join(t.TempDir(), "mk1.toml")); err == nil {
		t.Fatal("expected error for .toml")
	}
}
