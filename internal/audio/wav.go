package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ingyamilmolinar/mk1/internal/utils"
)

// Sample is a decoded PCM buffer stored as interleaved stereo frames.
type Sample struct {
	SampleRate int
	frames     []float32
}

// Frames returns the number of stereo frames.
func (s *Sample) Frames() int { return len(s.frames) / Channels }

// NewVoice returns a voice that plays the sample once.
func (s *Sample) NewVoice(bpm, sampleRate int) Voice {
	return &sampleVoice{buf: s.frames}
}

type sampleVoice struct {
	buf []float32
	i   int
}

func (v *sampleVoice) SampleStereo() (float64, float64, bool) {
	if v.i+1 >= len(v.buf) {
		return 0, 0, true
	}
	l, r := float64(v.buf[v.i]), float64(v.buf[v.i+1])
	v.i += Channels
	return l, r, false
}

func (v *sampleVoice) Sample() (float64, bool) {
	l, r, done := v.SampleStereo()
	return (l + r) / 2, done
}

// DecodeWAV reads a PCM WAV stream. Mono input is duplicated to both
// channels; anything beyond two channels keeps the first two.
func DecodeWAV(r io.ReadSeeker) (*Sample, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}
	ch := buf.Format.NumChannels
	if ch < 1 {
		return nil, fmt.Errorf("no channels: %w", ErrNotWAV)
	}
	depth := int(d.BitDepth)
	if depth == 0 {
		depth = 16
	}
	scale := math.Pow(2, float64(depth-1))
	n := len(buf.Data) / ch
	out := make([]float32, n*Channels)
	for f := 0; f < n; f++ {
		l := float64(buf.Data[f*ch]) / scale
		r := l
		if ch > 1 {
			r = float64(buf.Data[f*ch+1]) / scale
		}
		out[2*f] = float32(l)
		out[2*f+1] = float32(r)
	}
	return &Sample{SampleRate: buf.Format.SampleRate, frames: out}, nil
}

// LoadWAV decodes the WAV file at path.
func LoadWAV(path string) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeWAV(f)
}

// RegisterWAV decodes a .wav file and registers it as an instrument.
// Files whose sample rate differs from the engine's are rejected.
func (e *Engine) RegisterWAV(id, path string) error {
	s, err := LoadWAV(path)
	if err != nil {
		return fmt.Errorf("load wav %s: %w", path, err)
	}
	if s.SampleRate != e.sr {
		return fmt.Errorf("expected %dHz wav, got %d: %w", e.sr, s.SampleRate, ErrSampleRate)
	}
	e.Register(id, s)
	e.log.Info("sample registered", "id", id, "frames", s.Frames())
	return nil
}

// WriteWAV encodes interleaved stereo frames as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, sampleRate int, frames []float32) error {
	enc := wav.NewEncoder(w, sampleRate, 16, Channels, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: Channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(frames)),
		SourceBitDepth: 16,
	}
	for i, s := range frames {
		buf.Data[i] = int(utils.Clamp(float64(s), -1, 1) * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}
