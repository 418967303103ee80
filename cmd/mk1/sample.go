package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/zenity"
	"github.com/spf13/cobra"

	"github.com/ingyamilmolinar/mk1/internal/audio"
	"github.com/ingyamilmolinar/mk1/internal/preset"
)

var sampleID string

var sampleCmd = &cobra.Command{
	Use:     "sample",
	Aliases: []string{"samples"},
	Short:   "Manage the WAV samples registered as instruments",
}

var sampleImportCmd = &cobra.Command{
	Use:   "import [FILE]",
	Short: "Copy a WAV file into the samples directory",
	Long: "Copy a WAV file into the samples directory so every mk1 command can play it\n" +
		"as a drum by its id. Without FILE a file picker is shown.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSampleImport,
}

var sampleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported samples",
	Args:  cobra.NoArgs,
	RunE:  runSampleList,
}

func init() {
	sampleImportCmd.Flags().StringVar(&sampleID, "id", "", "instrument id (defaults to the file name)")
	sampleCmd.AddCommand(sampleImportCmd, sampleListCmd)
}

func runSampleImport(_ *cobra.Command, args []string) error {
	var src string
	if len(args) == 1 {
		src = args[0]
	} else {
		picked, err := zenity.SelectFile(
			zenity.Title("Import sample"),
			zenity.FileFilters{{Name: "WAV files", Patterns: []string{"*.wav"}, CaseFold: true}},
		)
		if errors.Is(err, zenity.ErrCanceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("file picker: %w", err)
		}
		src = picked
		if sampleID == "" {
			name, err := zenity.Entry("Instrument name?",
				zenity.Title("Instrument name"),
				zenity.EntryText(strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))))
			if errors.Is(err, zenity.ErrCanceled) {
				return nil
			}
			if err != nil {
				return err
			}
			sampleID = strings.TrimSpace(name)
		}
	}

	id := sampleID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	if err := preset.ValidName(id); err != nil {
		return fmt.Errorf("sample id: %w", err)
	}
	for _, d := range audio.Drums {
		if d == id {
			return fmt.Errorf("sample id %q shadows a built-in drum", id)
		}
	}

	s, err := audio.LoadWAV(src)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if s.SampleRate != cfg.Audio.SampleRate {
		return fmt.Errorf("%s is %d Hz but mk1 runs at %d Hz: %w", src, s.SampleRate, cfg.Audio.SampleRate, audio.ErrSampleRate)
	}

	dir, err := samplesDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, id+".wav")
	n, err := copyFile(dst, src)
	if err != nil {
		return err
	}
	fmt.Printf("imported %s as %q: %s, %s\n", src, id, humanize.Bytes(uint64(n)), sampleLength(s))
	return nil
}

func runSampleList(*cobra.Command, []string) error {
	dir, err := samplesDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".wav")
		if e.IsDir() || !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		s, err := audio.LoadWAV(filepath.Join(dir, e.Name()))
		if err != nil {
			fmt.Printf("%-16s unreadable: %v\n", id, err)
			continue
		}
		fmt.Printf("%-16s %8s %8s  %d Hz  added %s\n", id, humanize.Bytes(uint64(info.Size())),
			sampleLength(s), s.SampleRate, humanize.Time(info.ModTime()))
	}
	return nil
}

func sampleLength(s *audio.Sample) time.Duration {
	return (time.Duration(s.Frames()) * time.Second / time.Duration(s.SampleRate)).Round(time.Millisecond)
}

func copyFile(dst, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	return n, out.Close()
}
