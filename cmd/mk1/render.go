package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/ingyamilmolinar/mk1/internal/audio"
	"github.com/ingyamilmolinar/mk1/internal/mk1"
)

var (
	renderBars  int
	renderTail  time.Duration
	renderDwell bool
	renderZstd  int

	renderCmd = &cobra.Command{
		Use:   "render FILE",
		Short: "Bounce the pattern offline to a WAV file",
		Example: "mk1 render groove.wav --preset dub --bars 8\n" +
			"mk1 render ambient.wav.zst --dwell --bars 16 --zstd 3",
		Args: cobra.ExactArgs(1),
		RunE: runRender,
	}
)

func init() {
	f := renderCmd.Flags()
	f.IntVar(&renderBars, "bars", 4, "number of bars to play")
	f.DurationVar(&renderTail, "tail", time.Second, "silence left for effect tails after the last bar")
	f.BoolVar(&renderDwell, "dwell", false, "run the dwell layer while rendering")
	f.IntVar(&renderZstd, "zstd", 0, "compress the file with zstd at this level (1-22), 0 writes plain WAV")
}

func runRender(_ *cobra.Command, args []string) error {
	if renderBars < 1 {
		return errors.New("--bars must be at least 1")
	}
	if renderZstd < 0 || renderZstd > 22 {
		return fmt.Errorf("--zstd %d outside 0..22", renderZstd)
	}
	ctl, err := newInstrument()
	if err != nil {
		return err
	}
	defer ctl.Close()
	if renderDwell {
		ctl.DwellStart()
	}

	bpm := ctl.Sequencer().BPM()
	play := time.Duration(renderBars) * mk1.BarDuration(bpm)
	frames := ctl.Bounce(play, renderTail)

	path := args[0]
	sr := ctl.Audio().SampleRate()
	if renderZstd > 0 {
		err = writeZstdWAV(path, sr, frames, renderZstd)
	} else {
		err = writeWAV(path, sr, frames)
	}
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d bars at %d bpm, %s, %s\n", path, renderBars, bpm,
		(play + renderTail).Round(time.Millisecond), humanize.Bytes(uint64(info.Size())))
	return nil
}

func writeWAV(path string, sampleRate int, frames []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(f, sampleRate, frames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeZstdWAV encodes to a temporary WAV first since the encoder needs to
// seek back and patch the header.
func writeZstdWAV(path string, sampleRate int, frames []float32, level int) error {
	tmp, err := os.CreateTemp("", "mk1-render-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if err := audio.WriteWAV(tmp, sampleRate, frames); err != nil {
		return err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		out.Close()
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, tmp); err != nil {
		enc.Close()
		out.Close()
		return fmt.Errorf("compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
