package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/gobwas/glob"

	gqlgenconfig "github.com/99designs/gqlgen/codegen/config"
	"github.com/99designs/gqlgen/plugin/federation"

	"github.com/Yamashou/resolvergen/codegen"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// DefaultConfigFilenames are searched in order when no config file is given.
var DefaultConfigFilenames = []string{".resolvergen.yml", "resolvergen.yml", ".resolvergen.yaml", "resolvergen.yaml"}

const (
	defaultResolverRelativeTargetDir = "resolvers"
	defaultResolverMainFile          = "resolvers.generated.ts"
	defaultResolverFileExtension     = ".ts"
	defaultTypeDefsFilePath          = "typeDefs.generated.ts"
	defaultMappersFileExtension      = ".mappers.ts"
	defaultMappersSuffix             = "Mapper"
)

var defaultResolverGeneration = map[codegen.ResolverKind]string{
	codegen.KindQuery:        "*",
	codegen.KindMutation:     "*",
	codegen.KindSubscription: "*",
	codegen.KindScalar:       "*",
	codegen.KindObject:       "*",
	codegen.KindUnion:        "",
	codegen.KindInterface:    "",
}

// Config represents the config file.
type Config struct {
	SchemaFilename            gqlgenconfig.StringList            `yaml:"schema"`
	BaseOutputDir             string                             `yaml:"base_output_dir"`
	ResolverTypesPath         string                             `yaml:"resolver_types_path"`
	ResolverRelativeTargetDir string                             `yaml:"resolver_relative_target_dir,omitempty"`
	ResolverMainFile          string                             `yaml:"resolver_main_file,omitempty"`
	ResolverFileExtension     string                             `yaml:"resolver_file_extension,omitempty"`
	TypeDefsFilePath          *string                            `yaml:"type_defs_file_path,omitempty"`
	TypeDefsFileMode          codegen.TypeDefsFileMode           `yaml:"type_defs_file_mode,omitempty"`
	Mode                      codegen.Mode                       `yaml:"mode,omitempty"`
	WhitelistedModules        []string                           `yaml:"whitelisted_modules,omitempty"`
	BlacklistedModules        []string                           `yaml:"blacklisted_modules,omitempty"`
	Federation                int                                `yaml:"federation,omitempty"`
	ScalarsModule             string                             `yaml:"scalars_module,omitempty"`
	ScalarsManifest           string                             `yaml:"scalars_manifest,omitempty"`
	ScalarsOverrides          map[string]codegen.ScalarsOverride `yaml:"scalars_overrides,omitempty"`
	ResolverGeneration        map[codegen.ResolverKind]string    `yaml:"resolver_generation,omitempty"`
	MappersFileExtension      string                             `yaml:"mappers_file_extension,omitempty"`
	MappersSuffix             string                             `yaml:"mappers_suffix,omitempty"`
	PluginsConfigPath         string                             `yaml:"plugins_config_path,omitempty"`
	// EmitLegacyCommonJSImports set to false appends ".js" to relative import specifiers for ESM projects.
	EmitLegacyCommonJSImports *bool `yaml:"emit_legacy_common_js_imports,omitempty"`

	// SchemaFiles is SchemaFilename with every glob expanded.
	SchemaFiles []string         `yaml:"-"`
	Patterns    codegen.Patterns `yaml:"-"`
	Sources     []*ast.Source    `yaml:"-"`
	Schema      *ast.Schema      `yaml:"-"`
}

// LoadConfig loads and validates the config file.
func LoadConfig(configFilename string) (*Config, error) {
	configContent, err := os.ReadFile(configFilename)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	var c Config

	yamlDecoder := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(configContent)))), yaml.DisallowUnknownField())
	if err := yamlDecoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}

	c.setDefaults()

	if err := c.validate(); err != nil {
		return nil, err
	}

	if err := c.compilePatterns(); err != nil {
		return nil, err
	}

	schemaFiles, err := schemaFilenames(c.SchemaFilename)
	if err != nil {
		return nil, err
	}
	c.SchemaFiles = schemaFiles

	return &c, nil
}

func (c *Config) setDefaults() {
	if c.ResolverRelativeTargetDir == "" {
		c.ResolverRelativeTargetDir = defaultResolverRelativeTargetDir
	}
	if c.ResolverMainFile == "" {
		c.ResolverMainFile = defaultResolverMainFile
	}
	if c.ResolverFileExtension == "" {
		c.ResolverFileExtension = defaultResolverFileExtension
	}
	if c.TypeDefsFilePath == nil {
		p := defaultTypeDefsFilePath
		c.TypeDefsFilePath = &p
	}
	if c.TypeDefsFileMode == "" {
		c.TypeDefsFileMode = codegen.TypeDefsFileModeMerged
	}
	if c.Mode == "" {
		c.Mode = codegen.ModeModules
	}
	if c.MappersFileExtension == "" {
		c.MappersFileExtension = defaultMappersFileExtension
	}
	if c.MappersSuffix == "" {
		c.MappersSuffix = defaultMappersSuffix
	}
	if c.EmitLegacyCommonJSImports == nil {
		legacy := true
		c.EmitLegacyCommonJSImports = &legacy
	}
}

func (c *Config) validate() error {
	if len(c.SchemaFilename) == 0 {
		return errors.New("validation error: schema is required")
	}
	if c.BaseOutputDir == "" {
		return errors.New("validation error: base_output_dir is required")
	}
	if c.ResolverTypesPath == "" {
		return errors.New("validation error: resolver_types_path is required")
	}

	switch c.Mode {
	case codegen.ModeMerged, codegen.ModeModules:
	default:
		return fmt.Errorf("validation error: mode must be %q or %q, got %q", codegen.ModeMerged, codegen.ModeModules, c.Mode)
	}

	if len(c.WhitelistedModules) > 0 && c.Mode != codegen.ModeModules {
		return fmt.Errorf("validation error: whitelisted_modules can only be used with mode %q", codegen.ModeModules)
	}

	switch c.TypeDefsFileMode {
	case codegen.TypeDefsFileModeMerged, codegen.TypeDefsFileModeMergedWhitelisted, codegen.TypeDefsFileModeModules:
	default:
		return fmt.Errorf("validation error: type_defs_file_mode must be one of merged, mergedWhitelisted or modules, got %q", c.TypeDefsFileMode)
	}

	if path.Ext(c.ResolverMainFile) == "" {
		return fmt.Errorf("validation error: resolver_main_file must have an extension, got %q", c.ResolverMainFile)
	}

	switch c.Federation {
	case 0, 1, 2:
	default:
		return fmt.Errorf("validation error: federation must be 0, 1 or 2, got %d", c.Federation)
	}

	for _, name := range slices.Sorted(maps.Keys(c.ScalarsOverrides)) {
		override := c.ScalarsOverrides[name]
		if override.Type == "" && override.Resolver == "" {
			return fmt.Errorf("validation error: scalars_overrides.%s must set type or resolver", name)
		}
	}

	if c.ScalarsManifest != "" && c.ScalarsModule == "" {
		return errors.New("validation error: scalars_manifest requires scalars_module")
	}

	return nil
}

// compilePatterns merges resolver_generation over the defaults and compiles every pattern.
func (c *Config) compilePatterns() error {
	generation := maps.Clone(defaultResolverGeneration)
	for _, kind := range slices.Sorted(maps.Keys(c.ResolverGeneration)) {
		if !slices.Contains(codegen.ResolverKinds, kind) {
			return fmt.Errorf("validation error: resolver_generation.%s is not a resolver kind", kind)
		}
		generation[kind] = c.ResolverGeneration[kind]
	}
	c.ResolverGeneration = generation

	c.Patterns = make(codegen.Patterns, len(generation))
	for kind, raw := range generation {
		p, err := codegen.CompilePattern(raw)
		if err != nil {
			return fmt.Errorf("validation error: resolver_generation.%s: %w", kind, err)
		}
		c.Patterns[kind] = p
	}

	return nil
}

// TypeDefsEnabled reports whether typedef files are generated.
func (c *Config) TypeDefsEnabled() bool {
	return c.TypeDefsFilePath != nil && *c.TypeDefsFilePath != ""
}

// ESModuleImports reports whether relative imports of generated files need the ".js" extension.
func (c *Config) ESModuleImports() bool {
	return c.EmitLegacyCommonJSImports != nil && !*c.EmitLegacyCommonJSImports
}

// ResolverTypesFile is resolver_types_path joined with base_output_dir.
func (c *Config) ResolverTypesFile() string {
	return path.Join(filepath.ToSlash(c.BaseOutputDir), filepath.ToSlash(c.ResolverTypesPath))
}

// CodegenOptions returns the options of one analysis pass.
func (c *Config) CodegenOptions(typeMappers codegen.TypeMappersMap) codegen.Options {
	return codegen.Options{
		Mode:                      c.Mode,
		BaseOutputDir:             filepath.ToSlash(c.BaseOutputDir),
		ResolverRelativeTargetDir: c.ResolverRelativeTargetDir,
		ResolverTypesPath:         c.ResolverTypesFile(),
		ResolverFileExtension:     c.ResolverFileExtension,
		WhitelistedModules:        c.WhitelistedModules,
		BlacklistedModules:        c.BlacklistedModules,
		FederationEnabled:         c.Federation != 0,
		ScalarsModule:             c.ScalarsModule,
		ScalarsOverrides:          c.ScalarsOverrides,
		TypeMappers:               typeMappers,
	}
}

func (c *Config) ScopeOptions() codegen.ScopeOptions {
	return codegen.ScopeOptions{
		Mode:                      c.Mode,
		BaseOutputDir:             filepath.ToSlash(c.BaseOutputDir),
		ResolverRelativeTargetDir: c.ResolverRelativeTargetDir,
		WhitelistedModules:        c.WhitelistedModules,
		BlacklistedModules:        c.BlacklistedModules,
	}
}

func (c *Config) MapperDiscoveryOptions() codegen.MapperDiscoveryOptions {
	return codegen.MapperDiscoveryOptions{
		BaseOutputDir:     filepath.ToSlash(c.BaseOutputDir),
		FileExtension:     c.MappersFileExtension,
		Suffix:            c.MappersSuffix,
		ResolverTypesPath: c.ResolverTypesFile(),
	}
}

func (c *Config) TypeDefsOptions() codegen.TypeDefsOptions {
	typeDefsFilePath := ""
	if c.TypeDefsFilePath != nil {
		typeDefsFilePath = *c.TypeDefsFilePath
	}
	return codegen.TypeDefsOptions{
		BaseOutputDir:    filepath.ToSlash(c.BaseOutputDir),
		TypeDefsFilePath: typeDefsFilePath,
		Mode:             c.TypeDefsFileMode,
	}
}

// ScalarLoader returns the loader of the configured scalar module.
func (c *Config) ScalarLoader() codegen.ScalarModuleLoader {
	return &codegen.ManifestScalarLoader{Path: c.ScalarsManifest}
}

// LoadSchema reads every schema file and builds the schema. Federation directives are
// injected before validation so that @key and friends resolve.
func (c *Config) LoadSchema(ctx context.Context) error {
	sources, err := schemaFileSources(ctx, c.SchemaFiles)
	if err != nil {
		return err
	}

	schemaSources := slices.Clone(sources)
	if c.Federation != 0 {
		gqlgenCfg := gqlgenconfig.DefaultConfig()
		gqlgenCfg.Federation = gqlgenconfig.PackageConfig{Version: c.Federation}

		fedPlugin, err := federation.New(c.Federation, gqlgenCfg)
		if err != nil {
			return fmt.Errorf("failed to create federation plugin: %w", err)
		}

		federationSources, err := fedPlugin.InjectSourcesEarly()
		if err != nil {
			return fmt.Errorf("failed to inject federation directives: %w", err)
		}

		schemaSources = append(schemaSources, federationSources...)
	}

	schema, err := gqlparser.LoadSchema(schemaSources...)
	if err != nil {
		return fmt.Errorf("load local schema failed: %w", err)
	}

	c.Sources = sources
	c.Schema = schema

	return nil
}

func schemaFileSources(ctx context.Context, filenames []string) ([]*ast.Source, error) {
	sources := make([]*ast.Source, 0, len(filenames))
	for _, filename := range filenames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(filepath.FromSlash(filename))
		if err != nil {
			return nil, fmt.Errorf("unable to open schema: %w", err)
		}

		sources = append(sources, &ast.Source{Name: filename, Input: string(content)})
	}

	return sources, nil
}

// schemaFilenames expands globs into a sorted, deduplicated list of slash paths.
// A pattern containing ** walks its root directory; "a/**/b" also matches "a/b".
func schemaFilenames(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		pattern = path.Clean(filepath.ToSlash(pattern))

		var matches []string
		if strings.Contains(pattern, "**") {
			m, err := walkSchemaGlob(pattern)
			if err != nil {
				return nil, err
			}
			matches = m
		} else {
			m, err := filepath.Glob(filepath.FromSlash(pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to glob schema filename %s: %w", pattern, err)
			}
			matches = m
		}

		for _, m := range matches {
			m = filepath.ToSlash(m)
			if !slices.Contains(files, m) {
				files = append(files, m)
			}
		}
	}
	slices.Sort(files)

	return files, nil
}

func walkSchemaGlob(pattern string) ([]string, error) {
	root, _, _ := strings.Cut(pattern, "**")
	if root == "" {
		root = "."
	}

	nested, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema glob %s: %w", pattern, err)
	}
	flat, err := glob.Compile(strings.ReplaceAll(pattern, "**/", ""), '/')
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema glob %s: %w", pattern, err)
	}

	var matches []string
	if err := filepath.WalkDir(filepath.FromSlash(root), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := filepath.ToSlash(p)
		if nested.Match(name) || flat.Match(name) {
			matches = append(matches, name)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk schema at root %s: %w", root, err)
	}

	return matches, nil
}

// FindConfigFile returns the first of names that exists in dir.
func FindConfigFile(dir string, names []string) (string, error) {
	for _, name := range names {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}

	return "", fmt.Errorf("could not find config file: none of %s exists in %s", strings.Join(names, ", "), dir)
}
