package looper

import (
	"fmt"
	"io"

	"github.com/ingyamilmolinar/mk1/internal/audio"
)

// startCapture attaches a tap that appends post-master frames to the slot
// until the capture limit is reached. Called with l.mu held.
func (l *Looper) startCapture(s *slot) {
	if l.tapper == nil || s.tapping {
		return
	}
	limit := int(l.cfg.MaxCapture.Seconds()*float64(l.cfg.SampleRate)) * audio.Channels
	s.capMu.Lock()
	s.capture = make([]float32, 0, min(limit, l.cfg.SampleRate*audio.Channels*4))
	s.capMu.Unlock()
	s.tap = l.tapper.AddTap(func(frames []float32) {
		s.capMu.Lock()
		defer s.capMu.Unlock()
		room := limit - len(s.capture)
		if room <= 0 {
			return
		}
		if len(frames) > room {
			frames = frames[:room]
		}
		s.capture = append(s.capture, frames...)
	})
	s.tapping = true
}

func (l *Looper) stopCapture(s *slot) {
	if !s.tapping {
		return
	}
	l.tapper.RemoveTap(s.tap)
	s.tapping = false
}

// Audio returns the raw stereo frames captured during the slot's take,
// trimmed to the loop length.
func (l *Looper) Audio(i int) ([]float32, error) {
	l.mu.Lock()
	s, err := l.slot(i)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if s.state == Empty {
		l.mu.Unlock()
		return nil, fmt.Errorf("slot %s: %w", s.name, ErrSlotEmpty)
	}
	n := -1
	if s.length > 0 {
		n = int(s.length.Seconds()*float64(l.cfg.SampleRate)) * audio.Channels
	}
	l.mu.Unlock()

	s.capMu.Lock()
	defer s.capMu.Unlock()
	if n < 0 || n > len(s.capture) {
		n = len(s.capture)
	}
	return append([]float32(nil), s.capture[:n]...), nil
}

// ExportWAV writes the slot's captured audio as a 16-bit stereo WAV.
func (l *Looper) ExportWAV(i int, w io.WriteSeeker) error {
	frames, err := l.Audio(i)
	if err != nil {
		return err
	}
	return audio.WriteWAV(w, l.cfg.SampleRate, frames)
}
