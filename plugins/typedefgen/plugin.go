// Package typedefgen はスキーマの SDL を typeDefs としてエクスポートする TypeScript ファイルを生成する。
package typedefgen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/99designs/gqlgen/plugin"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

var _ plugin.Plugin = &Plugin{}

// Plugin は codegen.PlanTypeDefsFiles が計画した SDL を TypeScript に変換する。
type Plugin struct {
	files  map[string]string
	logger zerolog.Logger
}

// New は新しい typedefgen プラグインインスタンスを作成する。files はファイルパスをキーとした生の SDL。
func New(files map[string]string, logger zerolog.Logger) *Plugin {
	return &Plugin{
		files:  files,
		logger: logger,
	}
}

func (p *Plugin) Name() string {
	return "typedefgen"
}

// Render は SDL を整形し、typeDefs をエクスポートするファイルの内容を返す。
func (p *Plugin) Render() (map[string]string, error) {
	rendered := make(map[string]string, len(p.files))
	for filePath, sdl := range p.files {
		formatted, err := FormatSDL(filePath, sdl)
		if err != nil {
			return nil, err
		}
		rendered[filePath] = TypeDefsContent(formatted)
		p.logger.Debug().Str("path", filePath).Msg("typeDefs generated")
	}

	return rendered, nil
}

// FormatSDL は SDL を gqlparser の formatter で正規化する。
func FormatSDL(name, sdl string) (string, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return "", fmt.Errorf("failed to parse typeDefs of %s: %w", name, err)
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf, formatter.WithIndent("  ")).FormatSchemaDocument(doc)

	return buf.String(), nil
}

// TypeDefsContent は SDL をテンプレートリテラルに埋め込む。
func TypeDefsContent(sdl string) string {
	escaped := strings.NewReplacer("\\", "\\\\", "`", "\\`", "${", "\\${").Replace(sdl)
	return fmt.Sprintf("export const typeDefs = /* GraphQL */ `%s`;\n", escaped)
}
