package codegen

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/tools/txtar"
)

const userModuleSchema = `
-- src/schema/base/schema.graphql --
type Query {
  me: User
}

scalar DateTime
-- src/schema/user/schema.graphql --
extend type Query {
  users: [User!]!
}

type User {
  id: ID!
  name: String!
}
`

// loadArchive loads every file of a txtar archive as one schema source.
func loadArchive(t *testing.T, archive string) (*ast.Schema, []*ast.Source) {
	t.Helper()

	a := txtar.Parse([]byte(archive))
	sources := make([]*ast.Source, 0, len(a.Files))
	for _, f := range a.Files {
		sources = append(sources, &ast.Source{Name: f.Name, Input: string(f.Data)})
	}

	schema, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		t.Fatalf("failed to load schema: %v", err)
	}

	return schema, sources
}

func defaultOptions(mode Mode) Options {
	return Options{
		Mode:                      mode,
		BaseOutputDir:             "src/schema",
		ResolverRelativeTargetDir: "resolvers",
		ResolverTypesPath:         "src/schema/types.generated.ts",
		ResolverFileExtension:     ".ts",
		TypeMappers:               TypeMappersMap{},
	}
}

func parseArchive(t *testing.T, archive string, opts Options, loader ScalarModuleLoader, logger zerolog.Logger) (*ParsedGraphQLSchemaMeta, error) {
	t.Helper()

	schema, sources := loadArchive(t, archive)
	sourceMap, err := NewSourceMap(opts.Mode, opts.BaseOutputDir, sources)
	if err != nil {
		t.Fatalf("failed to build source map: %v", err)
	}

	return NewParser(opts, loader, logger).Parse(context.Background(), schema, sourceMap)
}

type fakeScalarLoader struct {
	resolvers map[string]ScalarResolver
	err       error
}

func (l *fakeScalarLoader) LoadScalarModule(context.Context, string) (map[string]ScalarResolver, error) {
	return l.resolvers, l.err
}

func TestParser_Parse_RootObjectFields(t *testing.T) {
	t.Parallel()

	meta, err := parseArchive(t, userModuleSchema, defaultOptions(ModeModules), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}

	want := map[string]*ResolverDetails{
		"base.me": {
			SchemaType:                      "Query",
			ModuleName:                      "base",
			ResolverFile:                    ResolverFile{Name: "me", Path: "src/schema/base/resolvers/Query/me.ts"},
			RelativePathFromBaseToModule:    []string{"base"},
			NormalizedResolverName:          NormalizedResolverName{Base: "me", WithModule: "base.me"},
			TypeNamedImport:                 "QueryResolvers",
			TypeString:                      "QueryResolvers['me']",
			RelativePathToResolverTypesFile: "./../../../types.generated",
			BelongsToRootObject:             RootQuery,
		},
		"user.users": {
			SchemaType:                      "Query",
			ModuleName:                      "user",
			ResolverFile:                    ResolverFile{Name: "users", Path: "src/schema/user/resolvers/Query/users.ts"},
			RelativePathFromBaseToModule:    []string{"user"},
			NormalizedResolverName:          NormalizedResolverName{Base: "users", WithModule: "user.users"},
			TypeNamedImport:                 "QueryResolvers",
			TypeString:                      "QueryResolvers['users']",
			RelativePathToResolverTypesFile: "./../../../types.generated",
			BelongsToRootObject:             RootQuery,
		},
	}
	if diff := cmp.Diff(want, meta.UserDefinedSchemaTypeMap.Query); diff != "" {
		t.Errorf("query resolvers diff(-want +got): %s", diff)
	}

	wantUser := map[string]*ObjectResolverDetails{
		"user.User": {
			ResolverDetails: ResolverDetails{
				SchemaType:                      "User",
				ModuleName:                      "user",
				ResolverFile:                    ResolverFile{Name: "User", Path: "src/schema/user/resolvers/User.ts"},
				RelativePathFromBaseToModule:    []string{"user"},
				NormalizedResolverName:          NormalizedResolverName{Base: "User", WithModule: "user.User"},
				TypeNamedImport:                 "UserResolvers",
				TypeString:                      "UserResolvers",
				RelativePathToResolverTypesFile: "./../../types.generated",
			},
			FieldsToPick: []string{},
		},
	}
	if diff := cmp.Diff(wantUser, meta.UserDefinedSchemaTypeMap.Object["User"]); diff != "" {
		t.Errorf("object resolvers diff(-want +got): %s", diff)
	}

	if _, ok := meta.UserDefinedSchemaTypeMap.Scalar["base.DateTime"]; !ok {
		t.Errorf("scalar DateTime is not recorded: %v", meta.UserDefinedSchemaTypeMap.Scalar)
	}
	for _, kind := range []ResolverKind{KindMutation, KindSubscription, KindInterface, KindUnion} {
		if got := meta.Resolvers(kind); len(got) != 0 {
			t.Errorf("%s resolvers = %v, want empty", kind, got)
		}
	}
}

func TestParser_Parse_Modes(t *testing.T) {
	t.Parallel()

	type want struct {
		queryKeys  []string
		userPath   string
		userKey    string
		scalarPath string
	}

	tests := []struct {
		name string
		mode Mode
		want want
	}{
		{
			name: "modulesモードではモジュールごとに出力される",
			mode: ModeModules,
			want: want{
				queryKeys:  []string{"base.me", "user.users"},
				userPath:   "src/schema/user/resolvers/User.ts",
				userKey:    "user.User",
				scalarPath: "src/schema/base/resolvers/DateTime.ts",
			},
		},
		{
			name: "mergedモードではベースディレクトリにまとめて出力される",
			mode: ModeMerged,
			want: want{
				queryKeys:  []string{".me", ".users"},
				userPath:   "src/schema/resolvers/User.ts",
				userKey:    ".User",
				scalarPath: "src/schema/resolvers/DateTime.ts",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			meta, err := parseArchive(t, userModuleSchema, defaultOptions(tt.mode), nil, zerolog.Nop())
			if err != nil {
				t.Fatalf("error = %v, want nil", err)
			}

			var gotKeys []string
			for _, k := range []string{"base.me", "user.users", ".me", ".users"} {
				if _, ok := meta.UserDefinedSchemaTypeMap.Query[k]; ok {
					gotKeys = append(gotKeys, k)
				}
			}
			if diff := cmp.Diff(tt.want.queryKeys, gotKeys); diff != "" {
				t.Errorf("query keys diff(-want +got): %s", diff)
			}

			user, ok := meta.UserDefinedSchemaTypeMap.Object["User"][tt.want.userKey]
			if !ok {
				t.Fatalf("object %s is not recorded", tt.want.userKey)
			}
			if user.ResolverFile.Path != tt.want.userPath {
				t.Errorf("user path = %q, want %q", user.ResolverFile.Path, tt.want.userPath)
			}

			var scalarPath string
			for _, d := range meta.UserDefinedSchemaTypeMap.Scalar {
				scalarPath = d.ResolverFile.Path
			}
			if scalarPath != tt.want.scalarPath {
				t.Errorf("scalar path = %q, want %q", scalarPath, tt.want.scalarPath)
			}
		})
	}
}

func TestParser_Parse_Mapper(t *testing.T) {
	t.Parallel()

	mapper := TypeMapper{
		SchemaType:       "User",
		MapperName:       "UserMapper",
		ConfigImportPath: "./user/user.mappers#UserMapper",
		FilePath:         "src/schema/user/user.mappers.ts",
		Fields:           []string{"id"},
		FieldsKnown:      true,
	}
	opts := defaultOptions(ModeModules)
	opts.TypeMappers = TypeMappersMap{"User": mapper}

	meta, err := parseArchive(t, userModuleSchema, opts, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}

	user := meta.UserDefinedSchemaTypeMap.Object["User"]["user.User"]
	if user == nil {
		t.Fatal("object user.User is not recorded")
	}
	if diff := cmp.Diff(&mapper, user.Mapper); diff != "" {
		t.Errorf("mapper diff(-want +got): %s", diff)
	}
	if diff := cmp.Diff([]string{"name"}, user.MapperMissingFields); diff != "" {
		t.Errorf("missing fields diff(-want +got): %s", diff)
	}
	if diff := cmp.Diff([]string{}, user.FieldsToPick); diff != "" {
		t.Errorf("fieldsToPick diff(-want +got): %s", diff)
	}
	if diff := cmp.Diff(map[string]string{"User": "./user/user.mappers#UserMapper"}, meta.PluginsConfig.DefaultTypeMappers); diff != "" {
		t.Errorf("defaultTypeMappers diff(-want +got): %s", diff)
	}

	planner := NewPlanner(Patterns{}, func(string) bool { return false }, zerolog.Nop())
	if got := planner.Decide(KindObject, &user.ResolverDetails, user); got != DecisionGenerate {
		t.Errorf("decision = %q, want %q", got, DecisionGenerate)
	}
}

func TestParser_Parse_Scalars(t *testing.T) {
	t.Parallel()

	type args struct {
		loader    ScalarModuleLoader
		overrides map[string]ScalarsOverride
	}

	type want struct {
		types     map[string]string
		resolvers map[string]string
	}

	tests := []struct {
		name string
		args args
		want want
	}{
		{
			name: "モジュールの型とoverrideのresolverが組み合わされる",
			args: args{
				loader: &fakeScalarLoader{resolvers: map[string]ScalarResolver{
					"DateTime": {Name: "DateTime", Extensions: ScalarExtensions{CodegenScalarType: "Date"}},
				}},
				overrides: map[string]ScalarsOverride{
					"DateTime": {Resolver: "./myResolvers#DateTime"},
				},
			},
			want: want{
				types:     map[string]string{"DateTime": "Date"},
				resolvers: map[string]string{"DateTime": "./myResolvers#DateTime"},
			},
		},
		{
			name: "モジュールのresolverがそのまま使われる",
			args: args{
				loader: &fakeScalarLoader{resolvers: map[string]ScalarResolver{
					"DateTime": {Name: "DateTime", Extensions: ScalarExtensions{CodegenScalarType: "Date | string"}},
				}},
			},
			want: want{
				types:     map[string]string{"DateTime": "Date | string"},
				resolvers: map[string]string{"DateTime": "~graphql-scalars#DateTimeResolver"},
			},
		},
		{
			name: "codegenScalarTypeが文字列でない場合は型を設定しない",
			args: args{
				loader: &fakeScalarLoader{resolvers: map[string]ScalarResolver{
					"DateTime": {Name: "DateTime", Extensions: ScalarExtensions{CodegenScalarType: map[string]any{"input": "Date"}}},
				}},
			},
			want: want{
				types:     map[string]string{},
				resolvers: map[string]string{"DateTime": "~graphql-scalars#DateTimeResolver"},
			},
		},
		{
			name: "モジュールが読み込めない場合はoverrideのみ適用される",
			args: args{
				loader: &fakeScalarLoader{err: ErrScalarModuleNotFound},
				overrides: map[string]ScalarsOverride{
					"ID":       {Type: "string"},
					"DateTime": {Type: "Date"},
				},
			},
			want: want{
				types:     map[string]string{"ID": "string", "DateTime": "Date"},
				resolvers: map[string]string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := defaultOptions(ModeModules)
			opts.ScalarsModule = "graphql-scalars"
			opts.ScalarsOverrides = tt.args.overrides

			meta, err := parseArchive(t, userModuleSchema, opts, tt.args.loader, zerolog.Nop())
			if err != nil {
				t.Fatalf("error = %v, want nil", err)
			}

			if diff := cmp.Diff(tt.want.types, meta.PluginsConfig.DefaultScalarTypesMap); diff != "" {
				t.Errorf("defaultScalarTypesMap diff(-want +got): %s", diff)
			}
			if diff := cmp.Diff(tt.want.resolvers, meta.PluginsConfig.DefaultScalarExternalResolvers); diff != "" {
				t.Errorf("defaultScalarExternalResolvers diff(-want +got): %s", diff)
			}
		})
	}
}

func TestParser_Parse_ScalarModuleWarning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	opts := defaultOptions(ModeModules)
	opts.ScalarsModule = "graphql-scalars"

	_, err := parseArchive(t, userModuleSchema, opts, &fakeScalarLoader{err: ErrScalarModuleNotFound}, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}

	if !strings.Contains(buf.String(), "Unable to import `graphql-scalars`") {
		t.Errorf("log = %q, want a warning about graphql-scalars", buf.String())
	}
}

func TestParser_Parse_Blacklisted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	opts := defaultOptions(ModeModules)
	opts.BlacklistedModules = []string{"user"}

	meta, err := parseArchive(t, userModuleSchema, opts, nil, zerolog.New(&buf).Level(zerolog.DebugLevel))
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}

	if _, ok := meta.UserDefinedSchemaTypeMap.Query["user.users"]; ok {
		t.Error("user.users is recorded, want skipped")
	}
	if _, ok := meta.UserDefinedSchemaTypeMap.Query["base.me"]; !ok {
		t.Error("base.me is not recorded")
	}
	if _, ok := meta.UserDefinedSchemaTypeMap.Object["User"]; ok {
		t.Error("User is recorded, want skipped")
	}
	if !strings.Contains(buf.String(), `"resolver":"Query.users"`) {
		t.Errorf("log = %q, want a debug entry for Query.users", buf.String())
	}
}

func TestParser_Parse_Whitelisted(t *testing.T) {
	t.Parallel()

	opts := defaultOptions(ModeModules)
	opts.WhitelistedModules = []string{"base"}

	meta, err := parseArchive(t, userModuleSchema, opts, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}

	var got []string
	for k := range meta.UserDefinedSchemaTypeMap.Query {
		got = append(got, k)
	}
	if diff := cmp.Diff([]string{"base.me"}, got); diff != "" {
		t.Errorf("query keys diff(-want +got): %s", diff)
	}
	if _, ok := meta.UserDefinedSchemaTypeMap.Object["User"]; ok {
		t.Error("User is recorded, want skipped")
	}
	if _, ok := meta.UserDefinedSchemaTypeMap.Scalar["base.DateTime"]; !ok {
		t.Error("base.DateTime is not recorded")
	}
}

func TestParser_Parse_ExtendedObject(t *testing.T) {
	t.Parallel()

	const archive = `
-- src/schema/base/schema.graphql --
type Query {
  me: User
}

type User @key(fields: "id") {
  id: ID!
  name: String!
}

directive @key(fields: String!) repeatable on OBJECT | INTERFACE
-- src/schema/post/schema.graphql --
extend type User {
  posts: [String!]!
}
`

	type want struct {
		fieldsToPick map[string][]string
		reference    bool
	}

	tests := []struct {
		name       string
		mode       Mode
		federation bool
		want       want
	}{
		{
			name:       "extendされた型はモジュールごとにフィールドが分割される",
			mode:       ModeModules,
			federation: true,
			want: want{
				fieldsToPick: map[string][]string{
					"base.User": {"id", "name"},
					"post.User": {"posts"},
				},
				reference: true,
			},
		},
		{
			name: "mergedモードでは1つのresolverになる",
			mode: ModeMerged,
			want: want{
				fieldsToPick: map[string][]string{
					".User": {},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := defaultOptions(tt.mode)
			opts.FederationEnabled = tt.federation

			meta, err := parseArchive(t, archive, opts, nil, zerolog.Nop())
			if err != nil {
				t.Fatalf("error = %v, want nil", err)
			}

			got := map[string][]string{}
			for key, object := range meta.UserDefinedSchemaTypeMap.Object["User"] {
				got[key] = object.FieldsToPick
				if object.PickReferenceResolver != tt.want.reference {
					t.Errorf("%s pickReferenceResolver = %v, want %v", key, object.PickReferenceResolver, tt.want.reference)
				}
			}
			if diff := cmp.Diff(tt.want.fieldsToPick, got); diff != "" {
				t.Errorf("fieldsToPick diff(-want +got): %s", diff)
			}
		})
	}
}

func TestParser_Parse_Idempotent(t *testing.T) {
	t.Parallel()

	opts := defaultOptions(ModeModules)
	first, err := parseArchive(t, userModuleSchema, opts, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}
	second, err := parseArchive(t, userModuleSchema, opts, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("diff(-first +second): %s", diff)
	}
}

func TestParser_Parse_UnionAndInterface(t *testing.T) {
	t.Parallel()

	const archive = `
-- src/schema/search/schema.graphql --
type Query {
  search: [SearchResult!]!
}

interface Node {
  id: ID!
}

type Book implements Node {
  id: ID!
}

type Author implements Node {
  id: ID!
}

union SearchResult = Book | Author

type Subscription {
  bookAdded: Book!
}
`

	meta, err := parseArchive(t, archive, defaultOptions(ModeModules), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}

	tests := []struct {
		kind ResolverKind
		key  string
		path string
	}{
		{kind: KindInterface, key: "search.Node", path: "src/schema/search/resolvers/Node.ts"},
		{kind: KindUnion, key: "search.SearchResult", path: "src/schema/search/resolvers/SearchResult.ts"},
		{kind: KindSubscription, key: "search.bookAdded", path: "src/schema/search/resolvers/Subscription/bookAdded.ts"},
	}
	for _, tt := range tests {
		details, ok := meta.Resolvers(tt.kind)[tt.key]
		if !ok {
			t.Errorf("%s %s is not recorded", tt.kind, tt.key)
			continue
		}
		if details.ResolverFile.Path != tt.path {
			t.Errorf("%s path = %q, want %q", tt.key, details.ResolverFile.Path, tt.path)
		}
	}
}

func TestParser_Parse_DuplicateResolverName(t *testing.T) {
	t.Parallel()

	const archive = `
-- src/schema/user/schema.graphql --
type Query {
  user_name: String
  userName: String
}
`

	_, err := parseArchive(t, archive, defaultOptions(ModeModules), nil, zerolog.Nop())
	if !errors.Is(err, ErrDuplicateResolverName) {
		t.Errorf("error = %v, want %v", err, ErrDuplicateResolverName)
	}
}

func TestParser_Parse_NilSchema(t *testing.T) {
	t.Parallel()

	_, err := NewParser(defaultOptions(ModeModules), nil, zerolog.Nop()).Parse(context.Background(), nil, SourceMap{})
	if err == nil {
		t.Error("error = nil, want error")
	}
}
