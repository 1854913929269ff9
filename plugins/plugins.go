package plugins

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/99designs/gqlgen/plugin"
	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"

	"github.com/Yamashou/resolvergen/codegen"
	"github.com/Yamashou/resolvergen/config"
	"github.com/Yamashou/resolvergen/plugins/resolvergen"
	"github.com/Yamashou/resolvergen/plugins/typedefgen"
)

// Renderer renders the files of one generation run, keyed by file path.
type Renderer interface {
	plugin.Plugin
	Render() (map[string]string, error)
}

// GenerateCode analyzes the loaded schema, renders every plugin and writes the result.
// cfg.LoadSchema must have been called.
func GenerateCode(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	sourceMap, err := codegen.NewSourceMap(cfg.Mode, cfg.BaseOutputDir, cfg.Sources)
	if err != nil {
		return fmt.Errorf("failed to build source map: %w", err)
	}

	typeMappers, err := codegen.DiscoverTypeMappers(cfg.MapperDiscoveryOptions())
	if err != nil {
		return err
	}

	meta, err := codegen.NewParser(cfg.CodegenOptions(typeMappers), cfg.ScalarLoader(), logger).Parse(ctx, cfg.Schema, sourceMap)
	if err != nil {
		return fmt.Errorf("failed to parse schema: %w", err)
	}

	plan := codegen.NewPlanner(cfg.Patterns, codegen.FileExists, logger).Plan(meta)

	////////////////////////////////////////////////////////////////////////////////////////////////////////////////////
	// Plugins

	renderers := []Renderer{
		resolvergen.New(resolvergen.Options{
			Mode:                      cfg.Mode,
			BaseOutputDir:             cfg.BaseOutputDir,
			ResolverRelativeTargetDir: cfg.ResolverRelativeTargetDir,
			ResolverMainFile:          cfg.ResolverMainFile,
			ResolverTypesPath:         cfg.ResolverTypesFile(),
			ESModuleImports:           cfg.ESModuleImports(),
		}, meta, plan, logger),
	}

	if cfg.TypeDefsEnabled() {
		scope := codegen.NewScope(cfg.ScopeOptions(), sourceMap)
		typeDefs := codegen.PlanTypeDefsFiles(cfg.TypeDefsOptions(), sourceMap, scope)
		renderers = append(renderers, typedefgen.New(typeDefs, logger))
	}

	files := map[string]string{}
	for _, r := range renderers {
		rendered, err := r.Render()
		if err != nil {
			return fmt.Errorf("%s failed: %w", r.Name(), err)
		}
		for filePath, content := range rendered {
			if _, ok := files[filePath]; ok {
				return fmt.Errorf("%s failed: %s is already generated by another plugin", r.Name(), filePath)
			}
			files[filePath] = content
		}
	}

	// Stubs only seed new files. Once a resolver file exists it belongs to the user.
	for _, r := range plan.Generated() {
		filePath := r.Details.ResolverFile.Path
		if codegen.FileExists(filePath) {
			delete(files, filePath)
			logger.Debug().Str("path", filePath).Msg("resolver file already exists, not overwritten")
		}
	}

	if err := writeFiles(files); err != nil {
		return err
	}

	if cfg.PluginsConfigPath != "" {
		if err := writePluginsConfig(cfg.PluginsConfigPath, meta.PluginsConfig); err != nil {
			return err
		}
	}

	logger.Info().
		Int("resolvers", len(plan.Resolvers)).
		Int("generated", len(plan.Generated())).
		Int("files", len(files)).
		Msg("generation completed")

	return nil
}

func writeFiles(files map[string]string) error {
	for _, filePath := range slices.Sorted(maps.Keys(files)) {
		if err := writeFile(filePath, []byte(files[filePath])); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(filePath string, content []byte) error {
	p := filepath.FromSlash(filePath)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filePath, err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	return nil
}

func writePluginsConfig(filePath string, pluginsConfig codegen.PluginsConfig) error {
	content, err := yaml.Marshal(pluginsConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal plugins config: %w", err)
	}
	return writeFile(filePath, content)
}
