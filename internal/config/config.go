// Package config loads mk1 settings from defaults, the process
// environment, a YAML file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/ingyamilmolinar/mk1/core/beat"
	"github.com/ingyamilmolinar/mk1/internal/log"
)

// Config holds every setting of the mk1 binary.
type Config struct {
	LogLevel string `yaml:"log_level" env:"MK1_LOG_LEVEL" envDefault:"info"`

	Audio   AudioConfig   `yaml:"audio"`
	Server  ServerConfig  `yaml:"server"`
	Looper  LooperConfig  `yaml:"looper"`
	Presets PresetsConfig `yaml:"presets"`
	Dwell   DwellConfig   `yaml:"dwell"`
}

type AudioConfig struct {
	SampleRate int           `yaml:"sample_rate" env:"MK1_AUDIO_SAMPLE_RATE" envDefault:"44100"`
	BufferSize time.Duration `yaml:"buffer_size" env:"MK1_AUDIO_BUFFER_SIZE" envDefault:"40ms"`
	MaxVoices  int           `yaml:"max_voices" env:"MK1_AUDIO_MAX_VOICES" envDefault:"64"`
	// Output is "oto" for the sound card or "null" to render silently.
	Output string `yaml:"output" env:"MK1_AUDIO_OUTPUT" envDefault:"oto"`
	BPM    int    `yaml:"bpm" env:"MK1_AUDIO_BPM" envDefault:"120"`
}

type ServerConfig struct {
	HTTPAddr  string  `yaml:"http_addr" env:"MK1_SERVER_HTTP_ADDR" envDefault:"127.0.0.1:7400"`
	OSCAddr   string  `yaml:"osc_addr" env:"MK1_SERVER_OSC_ADDR" envDefault:"127.0.0.1:7401"`
	MIDIPort  string  `yaml:"midi_port" env:"MK1_SERVER_MIDI_PORT"`
	RateLimit float64 `yaml:"rate_limit" env:"MK1_SERVER_RATE_LIMIT" envDefault:"500"`
	Burst     int     `yaml:"burst" env:"MK1_SERVER_BURST" envDefault:"100"`
}

type LooperConfig struct {
	Quantize   bool          `yaml:"quantize" env:"MK1_LOOPER_QUANTIZE" envDefault:"false"`
	MaxCapture time.Duration `yaml:"max_capture" env:"MK1_LOOPER_MAX_CAPTURE" envDefault:"1m"`
}

type PresetsConfig struct {
	Dir   string `yaml:"dir" env:"MK1_PRESETS_DIR"`
	Watch bool   `yaml:"watch" env:"MK1_PRESETS_WATCH" envDefault:"true"`
	// Load is applied at startup when set.
	Load string `yaml:"load" env:"MK1_PRESETS_LOAD"`
}

type DwellConfig struct {
	Seed int64 `yaml:"seed" env:"MK1_DWELL_SEED" envDefault:"1"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			SampleRate: 44100,
			BufferSize: 40 * time.Millisecond,
			MaxVoices:  64,
			Output:     "oto",
			BPM:        120,
		},
		Server: ServerConfig{
			HTTPAddr:  "127.0.0.1:7400",
			OSCAddr:   "127.0.0.1:7401",
			RateLimit: 500,
			Burst:     100,
		},
		Looper:  LooperConfig{MaxCapture: time.Minute},
		Presets: PresetsConfig{Watch: true},
		Dwell:   DwellConfig{Seed: 1},
	}
}

// FromEnv parses the process environment over the defaults.
func FromEnv() (Config, error) {
	return env.ParseAs[Config]()
}

// Load starts from the environment and overlays whatever v has set:
// config file values, MK1_ variables and bound flags.
func Load(v *viper.Viper) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	if v == nil {
		v = viper.GetViper()
	}

	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}

	if v.IsSet("audio.sample_rate") {
		cfg.Audio.SampleRate = v.GetInt("audio.sample_rate")
	}
	if v.IsSet("audio.buffer_size") {
		cfg.Audio.BufferSize = v.GetDuration("audio.buffer_size")
	}
	if v.IsSet("audio.max_voices") {
		cfg.Audio.MaxVoices = v.GetInt("audio.max_voices")
	}
	if v.IsSet("audio.output") {
		cfg.Audio.Output = v.GetString("audio.output")
	}
	if v.IsSet("audio.bpm") {
		cfg.Audio.BPM = v.GetInt("audio.bpm")
	}

	if v.IsSet("server.http_addr") {
		cfg.Server.HTTPAddr = v.GetString("server.http_addr")
	}
	if v.IsSet("server.osc_addr") {
		cfg.Server.OSCAddr = v.GetString("server.osc_addr")
	}
	if v.IsSet("server.midi_port") {
		cfg.Server.MIDIPort = v.GetString("server.midi_port")
	}
	if v.IsSet("server.rate_limit") {
		cfg.Server.RateLimit = v.GetFloat64("server.rate_limit")
	}
	if v.IsSet("server.burst") {
		cfg.Server.Burst = v.GetInt("server.burst")
	}

	if v.IsSet("looper.quantize") {
		cfg.Looper.Quantize = v.GetBool("looper.quantize")
	}
	if v.IsSet("looper.max_capture") {
		cfg.Looper.MaxCapture = v.GetDuration("looper.max_capture")
	}

	if v.IsSet("presets.dir") {
		cfg.Presets.Dir = v.GetString("presets.dir")
	}
	if v.IsSet("presets.watch") {
		cfg.Presets.Watch = v.GetBool("presets.watch")
	}
	if v.IsSet("presets.load") {
		cfg.Presets.Load = v.GetString("presets.load")
	}

	if v.IsSet("dwell.seed") {
		cfg.Dwell.Seed = v.GetInt64("dwell.seed")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every value against its supported range.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "none", "off":
	default:
		errs = append(errs, fmt.Errorf("log_level %q: want debug, info, warn, error or none", c.LogLevel))
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d outside 8000..192000", c.Audio.SampleRate))
	}
	if c.Audio.BufferSize < time.Millisecond || c.Audio.BufferSize > time.Second {
		errs = append(errs, fmt.Errorf("audio.buffer_size %v outside 1ms..1s", c.Audio.BufferSize))
	}
	if c.Audio.MaxVoices < 1 || c.Audio.MaxVoices > 1024 {
		errs = append(errs, fmt.Errorf("audio.max_voices %d outside 1..1024", c.Audio.MaxVoices))
	}
	if c.Audio.Output != "oto" && c.Audio.Output != "null" {
		errs = append(errs, fmt.Errorf("audio.output %q: want oto or null", c.Audio.Output))
	}
	if c.Audio.Output == "oto" && c.Audio.SampleRate != 44100 && c.Audio.SampleRate != 48000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d: the oto output only runs at 44100 or 48000", c.Audio.SampleRate))
	}
	if c.Audio.BPM < beat.MinBPM || c.Audio.BPM > beat.MaxBPM {
		errs = append(errs, fmt.Errorf("audio.bpm %d outside %d..%d", c.Audio.BPM, beat.MinBPM, beat.MaxBPM))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit %v must not be negative", c.Server.RateLimit))
	}
	if c.Server.Burst < 0 {
		errs = append(errs, fmt.Errorf("server.burst %d must not be negative", c.Server.Burst))
	}
	if c.Looper.MaxCapture < 0 || c.Looper.MaxCapture > 10*time.Minute {
		errs = append(errs, fmt.Errorf("looper.max_capture %v outside 0..10m", c.Looper.MaxCapture))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (c Config) Level() log.Level { return log.LevelFromString(c.LogLevel) }

// Setup points v at the mk1 config file and environment. An explicit file
// wins over the default search path. It returns the file that was read or,
// when none exists, the path where one would be created.
func Setup(v *viper.Viper, file string) (string, error) {
	v.SetEnvPrefix("mk1")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return file, fmt.Errorf("read %s: %w", file, err)
		}
		return file, nil
	}

	dirs, err := ConfigDirs()
	if err != nil {
		return "", err
	}
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.SetConfigName("mk1")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("parse configuration: %w", err)
		}
		return filepath.Join(dirs[0], "mk1.yml"), nil
	}
	return v.ConfigFileUsed(), nil
}

// ConfigDirs lists where the config file is searched, most specific first.
func ConfigDirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, "mk1").ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("find configuration directory: %w", err)
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "mk1")}, dirs...)
	}
	if c := os.Getenv("MK1_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// DefaultFile is written by "mk1 config" when no file exists yet.
const DefaultFile = `# log level: debug, info, warn, error or none
log_level: info

audio:
  sample_rate: 44100
  # device buffer; lower is snappier, higher is safer
  buffer_size: 40ms
  max_voices: 64
  # oto plays through the sound card, null renders silently
  output: oto
  bpm: 120

server:
  http_addr: "127.0.0.1:7400"
  osc_addr: "127.0.0.1:7401"
  # MIDI input port name; empty disables MIDI
  midi_port: ""
  # commands per second across all transports, 0 disables limiting
  rate_limit: 500
  burst: 100

looper:
  # round takes to whole bars
  quantize: false
  max_capture: 1m

presets:
  # defaults to the user data directory
  dir: ""
  watch: true
  load: ""

dwell:
  seed: 1
`

// WriteDefault creates path with DefaultFile unless it already exists.
func WriteDefault(path string) error {
	if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '.yaml' or '.yml'", ext)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("unable to create directory: %w", err)
	}
	return os.WriteFile(path, []byte(DefaultFile), 0o600)
}
