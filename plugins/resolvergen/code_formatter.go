package resolvergen

import (
	"fmt"
	"strings"

	"github.com/Yamashou/resolvergen/codegen"
)

const (
	indent            = "  "
	resolverArgs      = "async (_parent, _arg, _ctx) =>"
	graphQLScalarType = "GraphQLScalarType"
	generatedHeader   = "/* This file was automatically generated. DO NOT UPDATE MANUALLY. */"
)

// CodeFormatter は resolver ファイルの TypeScript ソースをフォーマットする。
type CodeFormatter struct {
	esModuleImports bool
}

// NewCodeFormatter は新しい CodeFormatter を作成する。
// esModuleImports が true の場合、相対パスの import に .js を付ける。
func NewCodeFormatter(esModuleImports bool) *CodeFormatter {
	return &CodeFormatter{esModuleImports: esModuleImports}
}

// importPath は import 文の from に書くパスを返す。
// ESM では相対パスに拡張子が必要になる。パッケージ名はそのまま。
func (f *CodeFormatter) importPath(from string) string {
	if f.esModuleImports && strings.HasPrefix(from, ".") {
		return from + ".js"
	}
	return from
}

// FormatTypeImport は resolver の型を import する行をフォーマットする。
//
// 例: "import type { QueryResolvers } from './../../../types.generated';"
func (f *CodeFormatter) FormatTypeImport(d *codegen.ResolverDetails) string {
	return fmt.Sprintf("import type { %s } from '%s';", d.TypeNamedImport, f.importPath(d.RelativePathToResolverTypesFile))
}

// FormatImport は main ファイルで resolver を import する行をフォーマットする。
func (f *CodeFormatter) FormatImport(imp importLine) string {
	if imp.alias != "" && imp.alias != imp.name {
		return fmt.Sprintf("import { %s as %s } from '%s';", imp.name, imp.alias, f.importPath(imp.from))
	}
	return fmt.Sprintf("import { %s } from '%s';", imp.name, f.importPath(imp.from))
}

// FormatRootFieldResolver は Query / Mutation / Subscription のフィールドの resolver をフォーマットする。
// Subscription の場合は subscribe を持つオブジェクトになる。
func (f *CodeFormatter) FormatRootFieldResolver(d *codegen.ResolverDetails) string {
	w := NewWriter(indent)
	w.WriteLine(f.FormatTypeImport(d))

	suggestion := fmt.Sprintf("/* Implement %s resolver logic here */", d.NormalizedResolverName.Base)
	declaration := fmt.Sprintf("export const %s: NonNullable<%s> =", d.ResolverFile.Name, d.TypeString)

	if d.BelongsToRootObject == codegen.RootSubscription {
		w.WriteBlock(declaration+" {", "};", func() {
			w.WriteBlock("subscribe: "+resolverArgs+" {", "},", func() {
				w.WriteLine(suggestion)
			})
		})
		return w.String()
	}

	w.WriteBlock(declaration+" "+resolverArgs+" {", "};", func() {
		w.WriteLine(suggestion)
	})
	return w.String()
}

// FormatObjectResolver はオブジェクト型の resolver をフォーマットする。
//
// 他のモジュールにもフィールドがある型は Pick で自モジュールのフィールドに絞る。
// マッパーが持たないフィールドは実行時に undefined を返さないよう resolver を生成する。
func (f *CodeFormatter) FormatObjectResolver(o *codegen.ObjectResolverDetails) string {
	w := NewWriter(indent)
	w.WriteLine(f.FormatTypeImport(&o.ResolverDetails))

	typeString := o.TypeString
	if len(o.FieldsToPick) > 0 {
		picked := append([]string{}, o.FieldsToPick...)
		if o.PickReferenceResolver {
			picked = append(picked, "__resolveReference")
		}
		picked = append(picked, "__isTypeOf")
		typeString = fmt.Sprintf("Pick<%s, %s>", o.TypeString, quoteUnion(picked))
	}

	w.WriteBlock(fmt.Sprintf("export const %s: %s = {", o.ResolverFile.Name, typeString), "};", func() {
		w.WriteLinef("/* Implement %s resolver logic here */", o.NormalizedResolverName.Base)

		if o.PickReferenceResolver {
			w.WriteBlock("__resolveReference: async (_reference, _ctx) => {", "},", func() {
				w.WriteLinef("/* Implement %s reference resolver logic here */", o.SchemaType)
			})
		}

		if o.Mapper == nil {
			return
		}
		if !o.Mapper.FieldsKnown {
			w.WriteLinef("/* %s has a shape that cannot be checked. Make sure every field of %s is resolved at runtime. */", o.Mapper.MapperName, o.SchemaType)
			return
		}
		if len(o.MapperMissingFields) == 0 {
			return
		}
		w.WriteLinef("/* The resolvers below are required at runtime: %s does not provide these fields of %s */", o.Mapper.MapperName, o.SchemaType)
		for _, field := range o.MapperMissingFields {
			w.WriteBlock(fmt.Sprintf("%s: %s {", field, resolverArgs), "},", func() {
				w.WriteLinef("/* %s.%s resolver is required because %s.%s exists but %s.%s does not */", o.SchemaType, field, o.SchemaType, field, o.Mapper.MapperName, field)
			})
		}
	})
	return w.String()
}

// FormatScalarResolver は GraphQLScalarType を使った scalar の resolver をフォーマットする。
func (f *CodeFormatter) FormatScalarResolver(d *codegen.ResolverDetails) string {
	w := NewWriter(indent)
	w.WriteLinef("import { %s } from 'graphql';", graphQLScalarType)

	name := d.ResolverFile.Name
	w.WriteBlock(fmt.Sprintf("export const %s = new %s({", name, graphQLScalarType), "});", func() {
		w.WriteLinef("name: '%s',", name)
		w.WriteLinef("description: '%s description',", name)
		w.WriteBlock("serialize: (value) => {", "},", func() {
			w.WriteLine("/* Implement logic to turn the returned value from resolvers to a value that can be sent to clients */")
		})
		w.WriteBlock("parseValue: (value) => {", "},", func() {
			w.WriteLine("/* Implement logic to parse input that was sent to the server as variables */")
		})
		w.WriteBlock("parseLiteral: (ast) => {", "},", func() {
			w.WriteLine("/* Implement logic to parse input that was sent to the server as literal values (string, number, or boolean) */")
		})
	})
	return w.String()
}

// FormatTypeResolver は union / interface の __resolveType をフォーマットする。
func (f *CodeFormatter) FormatTypeResolver(d *codegen.ResolverDetails, kind codegen.ResolverKind) string {
	w := NewWriter(indent)
	w.WriteLine(f.FormatTypeImport(d))

	w.WriteBlock(fmt.Sprintf("export const %s: %s = {", d.ResolverFile.Name, d.TypeString), "};", func() {
		w.WriteBlock("__resolveType: (_parent) => {", "},", func() {
			w.WriteLinef("/* Implement %s %s logic here */", d.ResolverFile.Name, kind)
			w.WriteLine("return null;")
		})
	})
	return w.String()
}

// FormatMainFile は resolver をまとめる main ファイルをフォーマットする。
func (f *CodeFormatter) FormatMainFile(m *mainFile) string {
	w := NewWriter(indent)
	w.WriteLine(generatedHeader)
	w.WriteLinef("import type { Resolvers } from '%s';", f.importPath(m.typesImport))
	for _, imp := range m.imports {
		w.WriteLine(f.FormatImport(imp))
	}

	w.WriteBlock("export const resolvers: Resolvers = {", "};", func() {
		for _, root := range []codegen.RootObjectType{codegen.RootQuery, codegen.RootMutation, codegen.RootSubscription} {
			group, ok := m.rootFields[root]
			if !ok || len(group.fields) == 0 {
				continue
			}
			fields := make([]string, 0, len(group.fields))
			for _, e := range group.fields {
				fields = append(fields, fmt.Sprintf("%s: %s", e.key, e.identifier))
			}
			w.WriteLinef("%s: { %s },", group.typeName, strings.Join(fields, ", "))
		}
		for _, e := range m.types {
			w.WriteLinef("%s: %s,", e.key, e.identifier)
		}
	})
	return w.String()
}

func quoteUnion(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, "'"+v+"'")
	}
	return strings.Join(quoted, "|")
}
