// Package resolvergen は解析結果から TypeScript の resolver スタブと main ファイルを生成する。
//
// 生成対象は codegen.Planner が generate と判定した resolver のみで、
// 既存のファイル（preserve）は main ファイルから import されるだけで上書きしない。
package resolvergen

import (
	"fmt"

	"github.com/99designs/gqlgen/plugin"
	"github.com/rs/zerolog"

	"github.com/Yamashou/resolvergen/codegen"
)

var _ plugin.Plugin = &Plugin{}

// Plugin は resolver ファイルを生成するプラグイン。
type Plugin struct {
	generator *CodeGenerator
	meta      *codegen.ParsedGraphQLSchemaMeta
	plan      *codegen.Plan
	logger    zerolog.Logger
}

// New は新しい resolvergen プラグインインスタンスを作成する。
//
// パラメータ:
//   - opts: 出力先の設定
//   - meta: スキーマの解析結果
//   - plan: resolver ごとの generate / preserve の判定結果
func New(opts Options, meta *codegen.ParsedGraphQLSchemaMeta, plan *codegen.Plan, logger zerolog.Logger) *Plugin {
	return &Plugin{
		generator: NewCodeGenerator(opts),
		meta:      meta,
		plan:      plan,
		logger:    logger,
	}
}

func (p *Plugin) Name() string {
	return "resolvergen"
}

// Render はファイルパスをキーとした生成ファイルの内容を返す。
func (p *Plugin) Render() (map[string]string, error) {
	files := map[string]string{}

	for _, r := range p.plan.Generated() {
		content, err := p.generator.Generate(r)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", r.Details.ResolverFile.Path, err)
		}
		files[r.Details.ResolverFile.Path] = content
		p.logger.Debug().Str("kind", string(r.Kind)).Str("path", r.Details.ResolverFile.Path).Msg("resolver generated")
	}

	for filePath, content := range p.generator.GenerateMainFiles(p.plan, p.meta) {
		if _, ok := files[filePath]; ok {
			return nil, fmt.Errorf("main file %s conflicts with a resolver file", filePath)
		}
		files[filePath] = content
	}

	return files, nil
}
