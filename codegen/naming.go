package codegen

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/ettle/strcase"
)

// NormalizeResolverName returns the canonical names of a resolver.
//
// Root operation fields are lower-camel-cased, type names are kept as declared.
// WithModule is only module-qualified in modules mode; in merged mode the empty module
// prefix keeps names unique by base alone.
func NormalizeResolverName(mode Mode, moduleName, name string, root RootObjectType) NormalizedResolverName {
	base := name
	if root != RootNone {
		base = strcase.ToCamel(name)
	}

	if mode == ModeModules && moduleName != "" {
		return NormalizedResolverName{Base: base, WithModule: moduleName + "." + base}
	}
	return NormalizedResolverName{Base: base, WithModule: "." + base}
}

// RelativeModulePath returns a TypeScript import specifier for toFile, relative to fromDir.
// e.g. "src/schema/user/resolvers", "src/schema/types.generated.ts" -> "./../../types.generated"
func RelativeModulePath(fromDir, toFile string) string {
	rel := relativePath(fromDir, toFile)
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return "./" + rel
}

func relativePath(from, to string) string {
	rel, err := filepath.Rel(filepath.FromSlash(cleanSlash(from)), filepath.FromSlash(cleanSlash(to)))
	if err != nil {
		// Rel only fails when one path is absolute and the other is not.
		return cleanSlash(to)
	}
	return filepath.ToSlash(rel)
}
