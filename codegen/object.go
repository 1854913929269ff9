package codegen

import (
	"path"

	"github.com/vektah/gqlparser/v2/ast"
)

const federationKeyDirective = "key"

type moduleFieldGroup struct {
	firstFieldPosition *ast.Position
	fieldNames         []string
}

// handleObjectType produces one resolver per (type, module) pair. When the type is split
// across modules with `extend type`, each module only picks the fields it declares.
func (pc *parseContext) handleObjectType(def *ast.Definition) (*ParsedGraphQLSchemaMeta, error) {
	delta := NewParsedGraphQLSchemaMeta()

	mapper, hasMapper := pc.opts.TypeMappers[def.Name]
	if hasMapper {
		delta.PluginsConfig.DefaultTypeMappers[mapper.SchemaType] = mapper.ConfigImportPath
	}

	pickReferenceResolver := pc.opts.FederationEnabled && def.Directives.ForName(federationKeyDirective) != nil

	groups := pc.groupFieldsByModule(def)
	for _, group := range groups {
		details, ok := pc.buildResolverDetails(group.firstFieldPosition, def.Name, def.Name, RootNone)
		if !ok {
			pc.logSkippedOutOfScope(def.Name)
			continue
		}

		fieldsToPick := []string{}
		if len(groups) > 1 {
			fieldsToPick = group.fieldNames
		}

		objectDetails := &ObjectResolverDetails{
			ResolverDetails:       *details,
			FieldsToPick:          fieldsToPick,
			PickReferenceResolver: pickReferenceResolver,
		}
		if hasMapper {
			objectDetails.Mapper = &mapper
			objectDetails.MapperMissingFields = mapper.MissingFields(group.fieldNames)
		}

		if err := delta.addObject(objectDetails); err != nil {
			return nil, err
		}
	}

	return delta, nil
}

// groupFieldsByModule groups fields by the directory they are declared in. The type's own
// position is not used: with `extend type` it only reflects one of the declarations.
// Merged mode has a single output tree, so all fields form one group.
func (pc *parseContext) groupFieldsByModule(def *ast.Definition) []*moduleFieldGroup {
	var groups []*moduleFieldGroup
	byDir := map[string]*moduleFieldGroup{}

	for _, field := range def.Fields {
		key := ""
		if pc.opts.Mode == ModeModules {
			key = fieldSourceDir(field.Position)
		}

		group, ok := byDir[key]
		if !ok {
			group = &moduleFieldGroup{firstFieldPosition: field.Position}
			byDir[key] = group
			groups = append(groups, group)
		}
		group.fieldNames = append(group.fieldNames, field.Name)
	}

	return groups
}

func fieldSourceDir(pos *ast.Position) string {
	if pos == nil || pos.Src == nil {
		return "."
	}
	return path.Dir(cleanSlash(pos.Src.Name))
}
