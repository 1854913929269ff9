package codegen

import (
	"fmt"
	"path"

	"github.com/vektah/gqlparser/v2/ast"
)

// buildResolverDetails resolves pos and describes the resolver file for it.
// It returns false when the location is out of scope.
func (pc *parseContext) buildResolverDetails(pos *ast.Position, schemaType, resolverName string, root RootObjectType, nestedDirs ...string) (*ResolverDetails, bool) {
	loc, ok := pc.scope.Resolve(pos, nestedDirs...)
	if !ok {
		return nil, false
	}

	typeString := schemaType + "Resolvers"
	if root != RootNone {
		typeString = fmt.Sprintf("%sResolvers['%s']", schemaType, resolverName)
	}

	return &ResolverDetails{
		SchemaType: schemaType,
		ModuleName: loc.ModuleName,
		ResolverFile: ResolverFile{
			Name: resolverName,
			Path: path.Join(loc.ResolversOutputDir, resolverName+pc.opts.ResolverFileExtension),
		},
		RelativePathFromBaseToModule:    loc.RelativePathFromBaseToModule,
		NormalizedResolverName:          NormalizeResolverName(pc.opts.Mode, loc.ModuleName, resolverName, root),
		TypeNamedImport:                 schemaType + "Resolvers",
		TypeString:                      typeString,
		RelativePathToResolverTypesFile: RelativeModulePath(loc.ResolversOutputDir, pc.opts.ResolverTypesPath),
		BelongsToRootObject:             root,
	}, true
}
