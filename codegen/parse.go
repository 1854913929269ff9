package codegen

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
)

// Options configures one analysis pass.
type Options struct {
	Mode                      Mode
	BaseOutputDir             string
	ResolverRelativeTargetDir string
	// ResolverTypesPath is the path of the shared generated-types file, already joined
	// with BaseOutputDir.
	ResolverTypesPath     string
	ResolverFileExtension string
	WhitelistedModules    []string
	BlacklistedModules    []string
	FederationEnabled     bool
	ScalarsModule         string
	ScalarsOverrides      map[string]ScalarsOverride
	TypeMappers           TypeMappersMap
}

func (o Options) scopeOptions() ScopeOptions {
	return ScopeOptions{
		Mode:                      o.Mode,
		BaseOutputDir:             o.BaseOutputDir,
		ResolverRelativeTargetDir: o.ResolverRelativeTargetDir,
		WhitelistedModules:        o.WhitelistedModules,
		BlacklistedModules:        o.BlacklistedModules,
	}
}

// Parser walks a schema and records every resolver that may be generated.
type Parser struct {
	opts         Options
	scalarLoader ScalarModuleLoader
	logger       zerolog.Logger
}

func NewParser(opts Options, scalarLoader ScalarModuleLoader, logger zerolog.Logger) *Parser {
	return &Parser{
		opts:         opts,
		scalarLoader: scalarLoader,
		logger:       logger,
	}
}

// parseContext is the read-only state shared by the kind handlers during one pass.
type parseContext struct {
	opts            Options
	scope           *Scope
	schema          *ast.Schema
	scalarResolvers map[string]ScalarResolver
	logger          zerolog.Logger
}

// Parse runs a single pass over the schema's type map. The scalar module is loaded once
// before the traversal begins.
func (p *Parser) Parse(ctx context.Context, schema *ast.Schema, sources SourceMap) (*ParsedGraphQLSchemaMeta, error) {
	if schema == nil {
		return nil, errors.New("schema is not loaded")
	}

	pc := &parseContext{
		opts:            p.opts,
		scope:           NewScope(p.opts.scopeOptions(), sources),
		schema:          schema,
		scalarResolvers: p.loadScalarResolvers(ctx),
		logger:          p.logger,
	}

	meta := NewParsedGraphQLSchemaMeta()
	for _, name := range slices.Sorted(maps.Keys(schema.Types)) {
		delta, err := pc.handle(schema.Types[name])
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := meta.merge(delta); err != nil {
			return nil, err
		}
	}

	return meta, nil
}

type elementKind int

const (
	elementOther elementKind = iota
	elementNativeScalar
	elementNative
	elementRootObject
	elementObject
	elementScalar
	elementUnion
	elementInterface
)

var specifiedScalars = map[string]struct{}{
	"Int":     {},
	"Float":   {},
	"String":  {},
	"Boolean": {},
	"ID":      {},
}

func classify(schema *ast.Schema, def *ast.Definition) elementKind {
	if def.BuiltIn {
		if _, ok := specifiedScalars[def.Name]; ok && def.Kind == ast.Scalar {
			return elementNativeScalar
		}
		return elementNative
	}

	switch def.Kind {
	case ast.Object:
		if rootObjectType(schema, def) != RootNone {
			return elementRootObject
		}
		return elementObject
	case ast.Scalar:
		return elementScalar
	case ast.Union:
		return elementUnion
	case ast.Interface:
		return elementInterface
	}
	return elementOther
}

func rootObjectType(schema *ast.Schema, def *ast.Definition) RootObjectType {
	switch def {
	case schema.Query:
		return RootQuery
	case schema.Mutation:
		return RootMutation
	case schema.Subscription:
		return RootSubscription
	}
	return RootNone
}

// handle dispatches def to its kind handler and returns the entries it contributes.
func (pc *parseContext) handle(def *ast.Definition) (*ParsedGraphQLSchemaMeta, error) {
	kind := classify(pc.schema, def)

	switch kind {
	case elementNativeScalar:
		return pc.handleNativeScalarType(def), nil
	case elementNative, elementOther:
		return NewParsedGraphQLSchemaMeta(), nil
	}

	if _, ok := pc.scope.Resolve(def.Position); !ok {
		if kind == elementRootObject {
			for _, field := range def.Fields {
				pc.logSkippedOutOfScope(def.Name + "." + field.Name)
			}
		} else {
			pc.logSkippedOutOfScope(def.Name)
		}
		return NewParsedGraphQLSchemaMeta(), nil
	}

	switch kind {
	case elementRootObject:
		return pc.handleRootObjectType(def)
	case elementObject:
		return pc.handleObjectType(def)
	case elementScalar:
		return pc.handleScalarType(def)
	case elementUnion:
		return pc.handleTypeResolver(def, KindUnion)
	case elementInterface:
		return pc.handleTypeResolver(def, KindInterface)
	}
	return NewParsedGraphQLSchemaMeta(), nil
}

func (pc *parseContext) logSkippedOutOfScope(name string) {
	pc.logger.Debug().Str("resolver", name).Msgf("Skipped resolver generation: %q. Not in a whitelisted module.", name)
}
