package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Source hands out the current policy snapshot. Callers take one snapshot
// per unit of work and never mutate it.
type Source interface {
	Snapshot() *Policy
}

// Static serves a fixed snapshot.
type Static struct {
	p *Policy
}

func NewStatic(p *Policy) *Static {
	if p == nil {
		p = DefaultPolicy()
	}
	return &Static{p: p}
}

func (s *Static) Snapshot() *Policy { return s.p }

// FileSource serves the policy loaded from a YAML file and swaps in a new
// snapshot whenever the file changes and still validates.
type FileSource struct {
	path string
	cur  atomic.Pointer[Policy]
	log  zerolog.Logger
}

// OpenFile loads path once. Missing files are an error; use Static for
// built-in defaults.
func OpenFile(path string, log zerolog.Logger) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("policy path: %w", err)
	}
	p, err := LoadPolicy(abs)
	if err != nil {
		return nil, err
	}
	s := &FileSource{path: abs, log: log}
	s.cur.Store(p)
	return s, nil
}

func (s *FileSource) Snapshot() *Policy { return s.cur.Load() }

// Path returns the absolute path being served.
func (s *FileSource) Path() string { return s.path }

// Reload re-reads the file. On error the previous snapshot stays active.
// An empty file is treated as a write in progress and rejected.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read policy: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("policy file is empty")
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return err
	}
	s.cur.Store(p)
	return nil
}

// Watch reloads on file changes until ctx is done. The parent directory is
// watched so that editors replacing the file by rename are picked up.
func (s *FileSource) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.log.Warn().Err(err).Str("path", s.path).Msg("policy reload rejected, keeping previous snapshot")
				continue
			}
			s.log.Info().Str("path", s.path).Msg("policy reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("policy watcher error")
		}
	}
}
