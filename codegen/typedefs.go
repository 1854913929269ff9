package codegen

import (
	"path"
	"strings"
)

type TypeDefsFileMode string

const (
	TypeDefsFileModeMerged            TypeDefsFileMode = "merged"
	TypeDefsFileModeMergedWhitelisted TypeDefsFileMode = "mergedWhitelisted"
	TypeDefsFileModeModules           TypeDefsFileMode = "modules"
)

type TypeDefsOptions struct {
	BaseOutputDir    string
	TypeDefsFilePath string
	Mode             TypeDefsFileMode
}

// PlanTypeDefsFiles concatenates raw SDL into typedef files, keyed by file path.
// Sources are appended in path order.
func PlanTypeDefsFiles(opts TypeDefsOptions, sources SourceMap, scope *Scope) map[string]string {
	contents := map[string]*strings.Builder{}
	appendSDL := func(filePath, sdl string) {
		if sdl == "" {
			return
		}
		b, ok := contents[filePath]
		if !ok {
			b = &strings.Builder{}
			contents[filePath] = b
		}
		b.WriteString(sdl)
		b.WriteString("\n")
	}

	mergedPath := path.Join(cleanSlash(opts.BaseOutputDir), opts.TypeDefsFilePath)
	for _, src := range sources.Sorted() {
		whitelisted := scope.IsWhitelisted(src.ModuleName)
		switch {
		case opts.Mode == TypeDefsFileModeMerged:
			appendSDL(mergedPath, src.RawSDL)
		case opts.Mode == TypeDefsFileModeMergedWhitelisted && whitelisted:
			appendSDL(mergedPath, src.RawSDL)
		case opts.Mode == TypeDefsFileModeModules && whitelisted:
			appendSDL(path.Join(src.ModuleDir, opts.TypeDefsFilePath), src.RawSDL)
		}
	}

	files := make(map[string]string, len(contents))
	for p, b := range contents {
		files[p] = b.String()
	}
	return files
}
