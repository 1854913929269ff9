package codegen

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// Source is one user schema file and the module that owns it.
type Source struct {
	ModuleName string
	ModuleDir  string
	Path       string
	RawSDL     string
}

// SourceMap is keyed by ast.Source.Name.
type SourceMap map[string]*Source

// NewSourceMap records every non built-in source. In modules mode every source must live
// under baseOutputDir, otherwise the module it belongs to cannot be anchored.
func NewSourceMap(mode Mode, baseOutputDir string, sources []*ast.Source) (SourceMap, error) {
	base := cleanSlash(baseOutputDir)
	sourceMap := make(SourceMap, len(sources))
	for _, src := range sources {
		if src == nil || src.BuiltIn {
			continue
		}
		p := cleanSlash(src.Name)
		dir := path.Dir(p)
		if mode == ModeModules && !isWithin(dir, base) {
			return nil, fmt.Errorf("schema source %s is outside base output dir %s", src.Name, baseOutputDir)
		}
		sourceMap[src.Name] = &Source{
			ModuleName: moduleNameFromDir(dir),
			ModuleDir:  dir,
			Path:       p,
			RawSDL:     src.Input,
		}
	}

	return sourceMap, nil
}

// Sorted returns the sources ordered by path.
func (m SourceMap) Sorted() []*Source {
	sources := make([]*Source, 0, len(m))
	for _, src := range m {
		sources = append(sources, src)
	}
	slices.SortFunc(sources, func(a, b *Source) int {
		return strings.Compare(a.Path, b.Path)
	})
	return sources
}

// inventory maps module directories to module names.
func (m SourceMap) inventory() map[string]string {
	modules := make(map[string]string, len(m))
	for _, src := range m {
		modules[src.ModuleDir] = src.ModuleName
	}
	return modules
}

func moduleNameFromDir(dir string) string {
	name := path.Base(dir)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func cleanSlash(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

func isWithin(dir, base string) bool {
	if base == "." {
		return !strings.HasPrefix(dir, "../") && dir != ".." && !path.IsAbs(dir)
	}
	return dir == base || strings.HasPrefix(dir, base+"/")
}
