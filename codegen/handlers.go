package codegen

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// handleRootObjectType records one resolver per field of Query, Mutation or Subscription.
// Fields declared in out of scope modules contribute nothing.
func (pc *parseContext) handleRootObjectType(def *ast.Definition) (*ParsedGraphQLSchemaMeta, error) {
	delta := NewParsedGraphQLSchemaMeta()
	root := rootObjectType(pc.schema, def)

	for _, field := range def.Fields {
		details, ok := pc.buildResolverDetails(field.Position, def.Name, field.Name, root, def.Name)
		if !ok {
			pc.logSkippedOutOfScope(def.Name + "." + field.Name)
			continue
		}
		if err := delta.addResolver(root.Kind(), details); err != nil {
			return nil, err
		}
	}

	return delta, nil
}

// handleTypeResolver records the single resolver of a union or interface.
func (pc *parseContext) handleTypeResolver(def *ast.Definition, kind ResolverKind) (*ParsedGraphQLSchemaMeta, error) {
	delta := NewParsedGraphQLSchemaMeta()

	details, ok := pc.buildResolverDetails(def.Position, def.Name, def.Name, RootNone)
	if !ok {
		return delta, nil
	}
	if err := delta.addResolver(kind, details); err != nil {
		return nil, err
	}

	return delta, nil
}

// handleScalarType wires the scalar's type and external resolver, then records its resolver.
func (pc *parseContext) handleScalarType(def *ast.Definition) (*ParsedGraphQLSchemaMeta, error) {
	delta := NewParsedGraphQLSchemaMeta()
	pc.wireScalar(def.Name, &delta.PluginsConfig)

	details, ok := pc.buildResolverDetails(def.Position, def.Name, def.Name, RootNone)
	if !ok {
		return delta, nil
	}
	if err := delta.addResolver(KindScalar, details); err != nil {
		return nil, err
	}

	return delta, nil
}

// handleNativeScalarType only applies a type override. Native scalars never get a resolver.
func (pc *parseContext) handleNativeScalarType(def *ast.Definition) *ParsedGraphQLSchemaMeta {
	delta := NewParsedGraphQLSchemaMeta()
	if override, ok := pc.opts.ScalarsOverrides[def.Name]; ok && override.Type != "" {
		delta.PluginsConfig.DefaultScalarTypesMap[def.Name] = override.Type
	}
	return delta
}
