package codegen

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-json-experiment/json"
)

// ErrScalarModuleNotFound is returned by a ScalarModuleLoader when the module cannot be found.
var ErrScalarModuleNotFound = errors.New("scalar module not found")

// ScalarsOverride replaces the type and/or the external resolver of one scalar.
type ScalarsOverride struct {
	Type     string `yaml:"type,omitempty"`
	Resolver string `yaml:"resolver,omitempty"`
}

// ScalarResolver is a scalar resolver exported by a scalar module.
type ScalarResolver struct {
	Name       string           `json:"name"`
	Extensions ScalarExtensions `json:"extensions"`
}

type ScalarExtensions struct {
	// CodegenScalarType is only used when it is a string.
	CodegenScalarType any `json:"codegenScalarType"`
}

func (r ScalarResolver) codegenScalarType() (string, bool) {
	t, ok := r.Extensions.CodegenScalarType.(string)
	return t, ok && t != ""
}

// ScalarModuleLoader loads the scalar resolvers exported by a module, keyed by scalar name.
type ScalarModuleLoader interface {
	LoadScalarModule(ctx context.Context, module string) (map[string]ScalarResolver, error)
}

// ManifestScalarLoader reads a scalar module's resolvers from a JSON manifest:
//
//	{"resolvers": {"DateTime": {"name": "DateTime", "extensions": {"codegenScalarType": "Date"}}}}
type ManifestScalarLoader struct {
	Path string
}

var _ ScalarModuleLoader = (*ManifestScalarLoader)(nil)

type scalarManifest struct {
	Resolvers map[string]ScalarResolver `json:"resolvers"`
}

func (l *ManifestScalarLoader) LoadScalarModule(_ context.Context, module string) (map[string]ScalarResolver, error) {
	if l.Path == "" {
		return nil, fmt.Errorf("%w: no manifest for %s", ErrScalarModuleNotFound, module)
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrScalarModuleNotFound, err)
		}
		return nil, fmt.Errorf("unable to read scalar manifest: %w", err)
	}

	var manifest scalarManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("unable to parse scalar manifest %s: %w", l.Path, err)
	}

	return manifest.Resolvers, nil
}

// loadScalarResolvers never fails: a module that cannot be loaded leaves the scalar
// resolvers for the user to implement.
func (p *Parser) loadScalarResolvers(ctx context.Context) map[string]ScalarResolver {
	if p.opts.ScalarsModule == "" || p.scalarLoader == nil {
		return map[string]ScalarResolver{}
	}

	resolvers, err := p.scalarLoader.LoadScalarModule(ctx, p.opts.ScalarsModule)
	if err != nil {
		p.logger.Warn().Err(err).Msgf("Unable to import `%s`. Install `%s` or you have to implement Scalar resolvers by yourself.", p.opts.ScalarsModule, p.opts.ScalarsModule)
		return map[string]ScalarResolver{}
	}
	if resolvers == nil {
		return map[string]ScalarResolver{}
	}

	return resolvers
}

// wireScalar records the scalar's type and external resolver. Override fields win
// field by field over what the scalar module provides.
func (pc *parseContext) wireScalar(schemaType string, cfg *PluginsConfig) {
	if resolver, ok := pc.scalarResolvers[schemaType]; ok {
		if t, ok := resolver.codegenScalarType(); ok {
			cfg.DefaultScalarTypesMap[schemaType] = t
		}
		name := resolver.Name
		if name == "" {
			name = schemaType
		}
		cfg.DefaultScalarExternalResolvers[schemaType] = fmt.Sprintf("~%s#%sResolver", pc.opts.ScalarsModule, name)
	}

	override, ok := pc.opts.ScalarsOverrides[schemaType]
	if !ok {
		return
	}
	if override.Type != "" {
		cfg.DefaultScalarTypesMap[schemaType] = override.Type
	}
	if override.Resolver != "" {
		cfg.DefaultScalarExternalResolvers[schemaType] = override.Resolver
	}
}
