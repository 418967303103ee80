package preset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"gopkg.in/yaml.v3"

	"github.com/ingyamilmolinar/mk1/internal/log"
)

const ext = ".yaml"

// DefaultDir is the per-user presets directory.
func DefaultDir() (string, error) {
	return gap.NewScope(gap.User, "mk1").DataPath("presets")
}

// Change reports a preset file edited on disk.
type Change struct {
	Name    string
	Removed bool
}

// Store keeps presets as YAML files in one directory. Built-ins are served
// from memory unless a file of the same name overrides them.
type Store struct {
	dir string
	log *log.Logger

	mu   sync.Mutex
	subs []chan Change
}

func NewStore(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create presets dir: %w", err)
	}
	return &Store{dir: dir, log: logger.With("presets")}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name+ext) }

// List returns every preset name, sorted.
func (s *Store) List() ([]string, error) {
	seen := map[string]bool{}
	for _, p := range Builtins {
		seen[p.Name] = true
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read presets dir: %w", err)
	}
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ext)
		if e.IsDir() || !ok || ValidName(name) != nil {
			continue
		}
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Load reads a preset from disk, falling back to the built-ins.
func (s *Store) Load(name string) (Preset, error) {
	if err := ValidName(name); err != nil {
		return Preset{}, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		if p, ok := builtin(name); ok {
			return p, nil
		}
		return Preset{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Preset{}, err
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("parse %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// Save writes p atomically.
func (s *Store) Save(p Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+p.Name+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(p.Name)); err != nil {
		return err
	}
	s.log.Info("saved preset", "name", p.Name)
	return nil
}

// Delete removes a saved preset. Built-ins cannot be deleted; deleting a
// file that overrides a built-in restores the built-in.
func (s *Store) Delete(name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		if _, ok := builtin(name); ok {
			return fmt.Errorf("%q: %w", name, ErrBuiltin)
		}
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return err
}

// Subscribe returns a channel receiving on-disk changes while Watch runs.
func (s *Store) Subscribe() <-chan Change {
	ch := make(chan Change, 8)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Watch reports preset files created, written or removed until ctx ends.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.log.Info("watching presets", "dir", s.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, isPreset := strings.CutSuffix(filepath.Base(ev.Name), ext)
			if !isPreset || ValidName(name) != nil {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				s.log.Debug("preset changed", "name", name, "op", ev.Op)
				s.notify(Change{Name: name})
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				s.notify(Change{Name: name, Removed: true})
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warnf("watch error: %v", err)
		}
	}
}
