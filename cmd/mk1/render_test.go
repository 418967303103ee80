package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/ingyamilmolinar/mk1/internal/audio"
)

func testFrames() []float32 {
	frames := make([]float32, 2*4410)
	for i := range frames {
		frames[i] = float32(i%200)/200 - 0.5
	}
	return frames
}

func TestWriteZstdWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav.zst")
	if err := writeZstdWAV(path, 44100, testFrames(), 3); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}
	s, err := audio.DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 4410 || s.SampleRate != 44100 {
		t.Fatalf("decoded %d frames at %d Hz", s.Frames(), s.SampleRate)
	}
}

func TestWriteWAVIsSmallerCompressed(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "a.wav")
	packed := filepath.Join(dir, "a.wav.zst")
	if err := writeWAV(plain, 44100, testFrames()); err != nil {
		t.Fatal(err)
	}
	if err := writeZstdWAV(packed, 44100, testFrames(), 9); err != nil {
		t.Fatal(err)
	}
	a, _ := os.Stat(plain)
	b, _ := os.Stat(packed)
	if b.Size() >= a.Size() {
		t.Fatalf("compressed %d >= plain %d", b.Size(), a.Size())
	}
}
