package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Yamashou/resolvergen/config"
	"github.com/Yamashou/resolvergen/plugins"
	"github.com/Yamashou/resolvergen/watch"
)

var defaultSchemaExtensions = []string{".graphql", ".graphqls", ".gql"}

func findConfigFile(cfgFile string) (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}

	cfgFile, err := config.FindConfigFile(".", config.DefaultConfigFilenames)
	if err != nil {
		return "", fmt.Errorf("failed to find config file: %w", err)
	}
	return cfgFile, nil
}

func run(ctx context.Context, cfgFile string, logger zerolog.Logger) error {
	cfgFile, err := findConfigFile(cfgFile)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadSchema(ctx); err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}

	if err := plugins.GenerateCode(ctx, cfg, logger); err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	return nil
}

// watchPatterns are the base name globs that trigger a regeneration: the extensions of the
// configured schema globs plus mapper files.
func watchPatterns(cfg *config.Config) []string {
	var patterns []string
	for _, schema := range cfg.SchemaFilename {
		ext := path.Ext(filepath.ToSlash(schema))
		if ext == "" || strings.ContainsAny(ext, "*?[{") {
			continue
		}
		if p := "*" + ext; !slices.Contains(patterns, p) {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		for _, ext := range defaultSchemaExtensions {
			patterns = append(patterns, "*"+ext)
		}
	}
	return append(patterns, "*"+cfg.MappersFileExtension)
}

// watchDirs are base_output_dir and the directories of schema files living outside of it.
func watchDirs(cfg *config.Config) []string {
	base := filepath.Clean(cfg.BaseOutputDir)
	dirs := []string{base}
	for _, f := range cfg.SchemaFiles {
		dir := filepath.Dir(filepath.FromSlash(f))
		if rel, err := filepath.Rel(base, dir); err == nil && !strings.HasPrefix(rel, "..") {
			continue
		}
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// addWatchDirs watches every existing directory of dirs and returns them.
// A missing directory is skipped with a warning.
func addWatchDirs(fw *watch.FileWatcher, dirs []string, logger zerolog.Logger) ([]string, error) {
	watched := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if err := fw.AddDirectory(dir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn().Str("dir", dir).Msg("directory does not exist, not watched")
				continue
			}
			return nil, err
		}
		watched = append(watched, dir)
	}
	return watched, nil
}

// runWatch generates once and then again on every schema or mapper change until ctx is done.
// Changes to the config file itself need a restart.
func runWatch(ctx context.Context, cfgFile string, logger zerolog.Logger) error {
	cfgFile, err := findConfigFile(cfgFile)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	fw, err := watch.NewFileWatcher(watchPatterns(cfg), watch.DefaultDebounce, logger)
	if err != nil {
		return err
	}
	defer fw.Close()

	// The first run may create base_output_dir, so directories are added afterwards.
	if err := run(ctx, cfgFile, logger); err != nil {
		logger.Error().Err(err).Msg("generation failed")
	}

	dirs, err := addWatchDirs(fw, watchDirs(cfg), logger)
	if err != nil {
		return err
	}

	logger.Info().Strs("dirs", dirs).Msg("watching for changes")

	err = fw.Run(ctx, func(ctx context.Context) error {
		return run(ctx, cfgFile, logger)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
