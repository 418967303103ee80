package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTestWAV(path string, sampleRate int) error {
	samples := sampleRate / 100 // 10ms
	data := make([]int16, samples)
	for i := range data {
		data[i] = int16(math.Sin(2*math.Pi*float64(i)/float64(samples)) * 30000)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dataSize := uint32(len(data) * 2)
	if _, err := f.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, 36+dataSize); err != nil {
		return err
	}
	if _, err := f.Write([]byte("WAVEfmt ")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(1)); err != nil { // PCM
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(1)); err != nil { // mono
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(sampleRate*2)); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(2)); err != nil { // block align
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(16)); err != nil { // bits per sample
		return err
	}
	if _, err := f.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, dataSize); err != nil {
		return err
	}
	for _, v := range data {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}


func TestRegisterWAVPlaysSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	if err := writeTestWAV(path, DefaultSampleRate); err != nil {
		t.Fatalf("writeTestWAV: %v", err)
	}
	e := dryEngine(t, Config{})
	if err := e.RegisterWAV("testwav", path); err != nil {
		t.Fatalf("RegisterWAV: %v", err)
	}
	if !e.Has("testwav") {
		t.Fatalf("instrument not registered")
	}
	if err := e.Play("testwav", 1, 0); err != nil {
		t.Fatal(err)
	}
	buf := render(e, 0.01)
	if firstSound(buf, 0, 1e-3) < 0 {
		t.Fatalf("expected non-zero audio from sample")
	}
}

func TestRegisterWAVRejectsOtherRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slow.wav")
	if err := writeTestWAV(path, 22050); err != nil {
		t.Fatalf("writeTestWAV: %v", err)
	}
	e := New(Config{})
	if err := e.RegisterWAV("slow", path); !errors.Is(err, ErrSampleRate) {
		t.Fatalf("got %v, want ErrSampleRate", err)
	}
	if e.Has("slow") {
		t.Fatal("rejected sample was registered")
	}
}

func TestRegisterWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := New(Config{})
	if err := e.RegisterWAV("junk", path); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("got %v, want ErrNotWAV", err)
	}
}

func TestWriteWAVIsReadable(t *testing.T) {
	frames := make([]float32, 2*441)
	for i := range frames {
		frames[i] = float32(math.Sin(float64(i) / 10))
	}
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteWAV(f, DefaultSampleRate, frames); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	f.Close()
	s, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV: %v", err)
	}
	if s.SampleRate != DefaultSampleRate || s.Frames() != 441 {
		t.Fatalf("decoded %d frames at %d Hz", s.Frames(), s.SampleRate)
	}
	if d := math.Abs(float64(s.frames[11] - frames[11])); d > 1e-3 {
		t.Fatalf("sample drift %f", d)
	}
}
