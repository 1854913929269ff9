package codegen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// TypeMapper declares that a schema object is resolved from a different runtime shape.
type TypeMapper struct {
	SchemaType string
	MapperName string
	// ConfigImportPath is "<import path relative to the resolver types file>#<MapperName>".
	ConfigImportPath string
	FilePath         string
	// Fields is only meaningful when FieldsKnown is true, i.e. the mapper is declared as
	// an object literal type or interface.
	Fields      []string
	FieldsKnown bool
}

// MissingFields returns the schema fields that the mapper does not declare. Nothing is
// reported when the mapper's shape is unknown.
func (m TypeMapper) MissingFields(schemaFields []string) []string {
	missing := []string{}
	if !m.FieldsKnown {
		return missing
	}
	for _, f := range schemaFields {
		if !slices.Contains(m.Fields, f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// TypeMappersMap is keyed by schema type.
type TypeMappersMap map[string]TypeMapper

type MapperDiscoveryOptions struct {
	BaseOutputDir string
	// FileExtension selects mapper files, e.g. ".mappers.ts".
	FileExtension string
	// Suffix is stripped from mapper names to find the schema type, e.g. "Mapper".
	Suffix            string
	ResolverTypesPath string
}

var mapperDeclRegexp = regexp.MustCompile(`(?m)^export\s+(interface|type)\s+([A-Za-z_$][\w$]*)\b`)

// DiscoverTypeMappers scans mapper files under the base output directory.
// A mapper declared twice is an error.
func DiscoverTypeMappers(opts MapperDiscoveryOptions) (TypeMappersMap, error) {
	mappers := TypeMappersMap{}
	if opts.FileExtension == "" || opts.Suffix == "" {
		return mappers, nil
	}

	root := filepath.FromSlash(cleanSlash(opts.BaseOutputDir))
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		// base_output_dir does not exist before the first merged mode run.
		if p == root && errors.Is(err, fs.ErrNotExist) {
			return fs.SkipAll
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), opts.FileExtension) {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("unable to read mapper file: %w", err)
		}

		filePath := filepath.ToSlash(p)
		for _, mapper := range parseMapperFile(string(content), opts.Suffix) {
			if existing, ok := mappers[mapper.SchemaType]; ok {
				return fmt.Errorf("mapper %s is declared in both %s and %s", mapper.MapperName, existing.FilePath, filePath)
			}
			mapper.FilePath = filePath
			typesDir := path.Dir(cleanSlash(opts.ResolverTypesPath))
			mapper.ConfigImportPath = RelativeModulePath(typesDir, filePath) + "#" + mapper.MapperName
			mappers[mapper.SchemaType] = mapper
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover type mappers: %w", err)
	}

	return mappers, nil
}

func parseMapperFile(content, suffix string) []TypeMapper {
	var mappers []TypeMapper
	for _, m := range mapperDeclRegexp.FindAllStringSubmatchIndex(content, -1) {
		keyword := content[m[2]:m[3]]
		name := content[m[4]:m[5]]
		schemaType, ok := strings.CutSuffix(name, suffix)
		if !ok || schemaType == "" {
			continue
		}

		mapper := TypeMapper{SchemaType: schemaType, MapperName: name}
		if body, ok := declarationBody(content[m[1]:], keyword); ok {
			mapper.Fields = topLevelMembers(body)
			mapper.FieldsKnown = true
		}
		mappers = append(mappers, mapper)
	}
	return mappers
}

// declarationBody returns the object literal of `interface X {…}` or `type X = {…}`.
// Generic parameters and `extends` clauses make the shape unknown.
func declarationBody(rest, keyword string) (string, bool) {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if keyword == "type" {
		after, ok := strings.CutPrefix(rest, "=")
		if !ok {
			return "", false
		}
		rest = strings.TrimLeft(after, " \t\r\n")
	}
	if !strings.HasPrefix(rest, "{") {
		return "", false
	}

	depth := 0
	for i, r := range rest {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[1:i], true
			}
		}
	}
	return "", false
}

var memberRegexp = regexp.MustCompile(`^\s*(?:readonly\s+)?([A-Za-z_$][\w$]*)\??\s*[:(]`)

func topLevelMembers(body string) []string {
	var members []string
	depth := 0
	var prev rune
	var line strings.Builder
	flush := func() {
		if m := memberRegexp.FindStringSubmatch(line.String()); m != nil {
			members = append(members, m[1])
		}
		line.Reset()
	}

	for _, r := range body {
		if r == '>' && prev == '=' {
			// arrow function
			prev = r
			continue
		}
		prev = r
		switch r {
		case '{', '(', '[', '<':
			if depth == 0 {
				line.WriteRune(r)
			}
			depth++
			continue
		case '}', ')', ']', '>':
			depth--
			continue
		case ';', ',', '\n':
			if depth == 0 {
				flush()
				continue
			}
		}
		if depth == 0 {
			line.WriteRune(r)
		}
	}
	flush()

	return members
}
