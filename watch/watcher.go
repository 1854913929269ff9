// Package watch reruns generation when schema or mapper files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
)

// DefaultDebounce collapses the burst of events an editor produces on save.
const DefaultDebounce = 200 * time.Millisecond

var skippedDirs = []string{"node_modules", ".git"}

// FileWatcher watches directory trees and reports changes of files whose base name matches
// one of its patterns.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	patterns []glob.Glob
	debounce time.Duration
	logger   zerolog.Logger
}

// NewFileWatcher compiles patterns (matched against base names, e.g. "*.graphql") and
// creates the underlying watcher.
func NewFileWatcher(patterns []string, debounce time.Duration, logger zerolog.Logger) (*FileWatcher, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid watch pattern %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		patterns: compiled,
		debounce: debounce,
		logger:   logger,
	}, nil
}

// AddDirectory adds dir and every directory below it.
func (fw *FileWatcher) AddDirectory(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && slices.Contains(skippedDirs, d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", p, err)
		}
		return nil
	})
}

func (fw *FileWatcher) shouldWatch(p string) bool {
	base := filepath.Base(p)
	for _, g := range fw.patterns {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Run calls onChange once per burst of matching events until ctx is done. An error from
// onChange is logged and watching continues.
func (fw *FileWatcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	timer := time.NewTimer(fw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}

			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.AddDirectory(event.Name); err != nil {
						fw.logger.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
					}
					continue
				}
			}

			if event.Op.Has(fsnotify.Chmod) || !fw.shouldWatch(event.Name) {
				continue
			}

			fw.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("change detected")
			timer.Reset(fw.debounce)

		case <-timer.C:
			if err := onChange(ctx); err != nil {
				fw.logger.Error().Err(err).Msg("regeneration failed")
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			fw.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
