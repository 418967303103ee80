package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Output drives an Engine from some clock source.
type Output interface {
	io.Closer
}

// OutputConfig describes the device stream.
type OutputConfig struct {
	SampleRate int           // 44100 or 48000 Hz only
	BufferSize time.Duration // device buffer; small values lower latency
}

func validateOutputConfig(cfg OutputConfig) error {
	if cfg.SampleRate != 44100 && cfg.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", cfg.SampleRate)
	}
	if cfg.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}

// OtoOutput plays an Engine on the system audio device.
type OtoOutput struct {
	ctx    *oto.Context
	player *oto.Player
}

// OpenOto creates the device context and starts pulling from src.
// Only one context may exist per process.
func OpenOto(src io.Reader, cfg OutputConfig) (*OtoOutput, error) {
	if err := validateOutputConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   cfg.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready
	p := ctx.NewPlayer(src)
	p.SetBufferSize(int(cfg.BufferSize.Seconds()*float64(cfg.SampleRate)) * Channels * 2)
	p.Play()
	return &OtoOutput{ctx: ctx, player: p}, nil
}

func (o *OtoOutput) Close() error {
	if err := o.player.Close(); err != nil {
		return err
	}
	return o.ctx.Suspend()
}

// NullOutput advances an Engine in real time without a device, so clocks,
// taps and the looper keep working headless.
type NullOutput struct {
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewNullOutput pulls 10 ms blocks from e on a ticker.
func NewNullOutput(e *Engine) *NullOutput {
	o := &NullOutput{stop: make(chan struct{})}
	block := make([]float32, e.SampleRate()/100*Channels)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		t := time.NewTicker(10 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-o.stop:
				return
			case <-t.C:
				e.Render(block)
			}
		}
	}()
	return o
}

func (o *NullOutput) Close() error {
	close(o.stop)
	o.wg.Wait()
	return nil
}
