package resolvergen

import (
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Yamashou/resolvergen/codegen"
)

// Options は resolver ファイルの出力先を表す。
type Options struct {
	Mode                      codegen.Mode
	BaseOutputDir             string
	ResolverRelativeTargetDir string
	ResolverMainFile          string
	// ResolverTypesPath は BaseOutputDir と結合済みの型ファイルのパス。
	ResolverTypesPath string
	// ESModuleImports が true の場合、相対パスの import に .js を付ける。
	ESModuleImports bool
}

// CodeGenerator は計画された resolver ごとにソースを生成する。
type CodeGenerator struct {
	opts      Options
	formatter *CodeFormatter
}

func NewCodeGenerator(opts Options) *CodeGenerator {
	return &CodeGenerator{
		opts:      opts,
		formatter: NewCodeFormatter(opts.ESModuleImports),
	}
}

// Generate は resolver の種類に応じたスタブを生成する。
func (g *CodeGenerator) Generate(r *codegen.PlannedResolver) (string, error) {
	switch r.Kind {
	case codegen.KindQuery, codegen.KindMutation, codegen.KindSubscription:
		return g.formatter.FormatRootFieldResolver(r.Details), nil
	case codegen.KindObject:
		if r.Object == nil {
			return "", fmt.Errorf("object resolver %s has no object details", r.Details.NormalizedResolverName.WithModule)
		}
		return g.formatter.FormatObjectResolver(r.Object), nil
	case codegen.KindScalar:
		return g.formatter.FormatScalarResolver(r.Details), nil
	case codegen.KindUnion, codegen.KindInterface:
		return g.formatter.FormatTypeResolver(r.Details, r.Kind), nil
	}

	return "", fmt.Errorf("unsupported resolver kind %q", r.Kind)
}

type importLine struct {
	name  string
	alias string
	from  string
}

func (i importLine) identifier() string {
	if i.alias != "" {
		return i.alias
	}
	return i.name
}

type mainEntry struct {
	key        string
	identifier string
}

// rootGroup はルート型のフィールド resolver をまとめる。
// typeName はスキーマ上の名前で、schema { query: RootQuery } のように変更されていることがある。
type rootGroup struct {
	typeName string
	fields   []mainEntry
}

// mainFile は1つの resolver main ファイルの内容。
type mainFile struct {
	path        string
	typesImport string
	imports     []importLine
	rootFields  map[codegen.RootObjectType]*rootGroup
	types       []mainEntry
}

// mainFilePath は resolver が属する main ファイルのパスを返す。
// modules モードではモジュールごと、merged モードではベースディレクトリに1つ。
func (g *CodeGenerator) mainFilePath(d *codegen.ResolverDetails) string {
	root := path.Clean(filepath.ToSlash(g.opts.BaseOutputDir))
	if g.opts.Mode == codegen.ModeModules {
		root = path.Join(append([]string{root}, d.RelativePathFromBaseToModule...)...)
	}
	return path.Join(root, g.opts.ResolverRelativeTargetDir, g.opts.ResolverMainFile)
}

// GenerateMainFiles は生成・保持される全ての resolver を import する main ファイルを生成する。
// スタブを持たない scalar は外部の resolver が設定されていればそれを import する。
func (g *CodeGenerator) GenerateMainFiles(plan *codegen.Plan, meta *codegen.ParsedGraphQLSchemaMeta) map[string]string {
	mainFiles := map[string]*mainFile{}
	get := func(d *codegen.ResolverDetails) *mainFile {
		p := g.mainFilePath(d)
		m, ok := mainFiles[p]
		if !ok {
			m = &mainFile{
				path:        p,
				typesImport: codegen.RelativeModulePath(path.Dir(p), g.opts.ResolverTypesPath),
				rootFields:  map[codegen.RootObjectType]*rootGroup{},
			}
			mainFiles[p] = m
		}
		return m
	}

	planned := map[string]struct{}{}
	for _, r := range plan.Resolvers {
		planned[r.Details.ResolverFile.Path] = struct{}{}

		m := get(r.Details)
		imp := importLine{
			name: r.Details.ResolverFile.Name,
			from: codegen.RelativeModulePath(path.Dir(m.path), r.Details.ResolverFile.Path),
		}

		if root := r.Details.BelongsToRootObject; root != codegen.RootNone {
			group, ok := m.rootFields[root]
			if !ok {
				group = &rootGroup{typeName: r.Details.SchemaType}
				m.rootFields[root] = group
			}
			imp.alias = group.typeName + "_" + imp.name
			m.imports = append(m.imports, imp)
			group.fields = append(group.fields, mainEntry{key: imp.name, identifier: imp.identifier()})
			continue
		}

		m.imports = append(m.imports, imp)
		m.types = append(m.types, mainEntry{key: r.Details.SchemaType, identifier: imp.identifier()})
	}

	scalars := meta.UserDefinedSchemaTypeMap.Scalar
	for _, key := range slices.Sorted(maps.Keys(scalars)) {
		d := scalars[key]
		if _, ok := planned[d.ResolverFile.Path]; ok {
			continue
		}
		binding, ok := meta.PluginsConfig.DefaultScalarExternalResolvers[d.SchemaType]
		if !ok {
			continue
		}

		m := get(d)
		imp, ok := g.externalImport(path.Dir(m.path), binding)
		if !ok {
			continue
		}
		m.imports = append(m.imports, imp)
		m.types = append(m.types, mainEntry{key: d.SchemaType, identifier: imp.identifier()})
	}

	files := make(map[string]string, len(mainFiles))
	for p, m := range mainFiles {
		slices.SortStableFunc(m.types, func(a, b mainEntry) int {
			return strings.Compare(a.key, b.key)
		})
		files[p] = g.formatter.FormatMainFile(m)
	}

	return files
}

// externalImport は "~module#Name" や "./file#Name" 形式の binding を import 文に変換する。
// 相対パスは型ファイルのディレクトリを基準に解決する。
func (g *CodeGenerator) externalImport(mainDir, binding string) (importLine, bool) {
	module, name, ok := strings.Cut(binding, "#")
	if !ok || module == "" || name == "" {
		return importLine{}, false
	}

	if pkg, ok := strings.CutPrefix(module, "~"); ok {
		return importLine{name: name, from: pkg}, true
	}

	if strings.HasPrefix(module, ".") {
		target := path.Join(path.Dir(g.opts.ResolverTypesPath), module)
		rel, err := filepath.Rel(filepath.FromSlash(mainDir), filepath.FromSlash(target))
		if err != nil {
			return importLine{}, false
		}
		return importLine{name: name, from: "./" + filepath.ToSlash(rel)}, true
	}

	return importLine{name: name, from: module}, true
}
