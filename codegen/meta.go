package codegen

import (
	"errors"
	"fmt"
)

// ErrDuplicateResolverName is returned when two schema elements of the same kind normalize
// to the same module-qualified resolver name.
var ErrDuplicateResolverName = errors.New("duplicate resolver name")

type Mode string

const (
	ModeMerged  Mode = "merged"
	ModeModules Mode = "modules"
)

// RootObjectType is the root operation a field belongs to. The zero value means the
// element is not a root operation field.
type RootObjectType string

const (
	RootNone         RootObjectType = ""
	RootQuery        RootObjectType = "Query"
	RootMutation     RootObjectType = "Mutation"
	RootSubscription RootObjectType = "Subscription"
)

// Kind returns the resolver kind that fields of the root object are recorded under.
func (r RootObjectType) Kind() ResolverKind {
	switch r {
	case RootQuery:
		return KindQuery
	case RootMutation:
		return KindMutation
	case RootSubscription:
		return KindSubscription
	}
	return ""
}

type ResolverKind string

const (
	KindQuery        ResolverKind = "query"
	KindMutation     ResolverKind = "mutation"
	KindSubscription ResolverKind = "subscription"
	KindObject       ResolverKind = "object"
	KindScalar       ResolverKind = "scalar"
	KindInterface    ResolverKind = "interface"
	KindUnion        ResolverKind = "union"
)

// ResolverKinds lists every kind in a stable order.
var ResolverKinds = []ResolverKind{
	KindQuery,
	KindMutation,
	KindSubscription,
	KindObject,
	KindScalar,
	KindInterface,
	KindUnion,
}

type NormalizedResolverName struct {
	Base       string
	WithModule string
}

type ResolverFile struct {
	Name string
	Path string
}

// ResolverDetails describes where a resolver would live and which type it must satisfy,
// if it were generated.
type ResolverDetails struct {
	SchemaType                      string
	ModuleName                      string
	ResolverFile                    ResolverFile
	RelativePathFromBaseToModule    []string
	NormalizedResolverName          NormalizedResolverName
	TypeNamedImport                 string
	TypeString                      string
	RelativePathToResolverTypesFile string
	BelongsToRootObject             RootObjectType
}

// ObjectResolverDetails is created once per (schema type, module) pair.
type ObjectResolverDetails struct {
	ResolverDetails

	// FieldsToPick is empty when every field of the type belongs to this module.
	FieldsToPick          []string
	PickReferenceResolver bool

	Mapper              *TypeMapper
	MapperMissingFields []string
}

type UserDefinedSchemaTypeMap struct {
	Query        map[string]*ResolverDetails
	Mutation     map[string]*ResolverDetails
	Subscription map[string]*ResolverDetails
	// Object is keyed by schema type, then by module-qualified name.
	Object    map[string]map[string]*ObjectResolverDetails
	Scalar    map[string]*ResolverDetails
	Interface map[string]*ResolverDetails
	Union     map[string]*ResolverDetails
}

type PluginsConfig struct {
	DefaultScalarTypesMap          map[string]string `yaml:"defaultScalarTypesMap"`
	DefaultScalarExternalResolvers map[string]string `yaml:"defaultScalarExternalResolvers"`
	DefaultTypeMappers             map[string]string `yaml:"defaultTypeMappers"`
}

// ParsedGraphQLSchemaMeta is the result of one analysis pass.
type ParsedGraphQLSchemaMeta struct {
	UserDefinedSchemaTypeMap UserDefinedSchemaTypeMap
	PluginsConfig            PluginsConfig
}

func NewParsedGraphQLSchemaMeta() *ParsedGraphQLSchemaMeta {
	return &ParsedGraphQLSchemaMeta{
		UserDefinedSchemaTypeMap: UserDefinedSchemaTypeMap{
			Query:        map[string]*ResolverDetails{},
			Mutation:     map[string]*ResolverDetails{},
			Subscription: map[string]*ResolverDetails{},
			Object:       map[string]map[string]*ObjectResolverDetails{},
			Scalar:       map[string]*ResolverDetails{},
			Interface:    map[string]*ResolverDetails{},
			Union:        map[string]*ResolverDetails{},
		},
		PluginsConfig: PluginsConfig{
			DefaultScalarTypesMap:          map[string]string{},
			DefaultScalarExternalResolvers: map[string]string{},
			DefaultTypeMappers:             map[string]string{},
		},
	}
}

// Resolvers returns the details map for a non-object kind.
func (m *ParsedGraphQLSchemaMeta) Resolvers(kind ResolverKind) map[string]*ResolverDetails {
	switch kind {
	case KindQuery:
		return m.UserDefinedSchemaTypeMap.Query
	case KindMutation:
		return m.UserDefinedSchemaTypeMap.Mutation
	case KindSubscription:
		return m.UserDefinedSchemaTypeMap.Subscription
	case KindScalar:
		return m.UserDefinedSchemaTypeMap.Scalar
	case KindInterface:
		return m.UserDefinedSchemaTypeMap.Interface
	case KindUnion:
		return m.UserDefinedSchemaTypeMap.Union
	}
	return nil
}

func (m *ParsedGraphQLSchemaMeta) addResolver(kind ResolverKind, details *ResolverDetails) error {
	resolvers := m.Resolvers(kind)
	if resolvers == nil {
		return fmt.Errorf("unsupported resolver kind %q", kind)
	}
	key := details.NormalizedResolverName.WithModule
	if existing, ok := resolvers[key]; ok {
		return duplicateError(kind, key, existing, details)
	}
	resolvers[key] = details
	return nil
}

func (m *ParsedGraphQLSchemaMeta) addObject(details *ObjectResolverDetails) error {
	modules, ok := m.UserDefinedSchemaTypeMap.Object[details.SchemaType]
	if !ok {
		modules = map[string]*ObjectResolverDetails{}
		m.UserDefinedSchemaTypeMap.Object[details.SchemaType] = modules
	}
	key := details.NormalizedResolverName.WithModule
	if existing, ok := modules[key]; ok {
		return duplicateError(KindObject, key, &existing.ResolverDetails, &details.ResolverDetails)
	}
	modules[key] = details
	return nil
}

// merge folds a handler's delta into m. Plugin config entries are keyed by schema type and
// simply replace earlier values; resolver entries must not collide.
func (m *ParsedGraphQLSchemaMeta) merge(delta *ParsedGraphQLSchemaMeta) error {
	for _, kind := range ResolverKinds {
		if kind == KindObject {
			continue
		}
		for _, details := range delta.Resolvers(kind) {
			if err := m.addResolver(kind, details); err != nil {
				return err
			}
		}
	}
	for _, modules := range delta.UserDefinedSchemaTypeMap.Object {
		for _, details := range modules {
			if err := m.addObject(details); err != nil {
				return err
			}
		}
	}

	for k, v := range delta.PluginsConfig.DefaultScalarTypesMap {
		m.PluginsConfig.DefaultScalarTypesMap[k] = v
	}
	for k, v := range delta.PluginsConfig.DefaultScalarExternalResolvers {
		m.PluginsConfig.DefaultScalarExternalResolvers[k] = v
	}
	for k, v := range delta.PluginsConfig.DefaultTypeMappers {
		m.PluginsConfig.DefaultTypeMappers[k] = v
	}

	return nil
}

func duplicateError(kind ResolverKind, key string, a, b *ResolverDetails) error {
	return fmt.Errorf("%w: %s %q is declared by both %s and %s", ErrDuplicateResolverName, kind, key, a.ResolverFile.Path, b.ResolverFile.Path)
}
