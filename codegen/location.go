package codegen

import (
	"path"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// ModuleLocation is the result of resolving a schema element's declaration location.
type ModuleLocation struct {
	ModuleName                   string
	ModuleDir                    string
	ResolversOutputDir           string
	RelativePathFromBaseToModule []string
}

// Scope answers which module owns a declaration and whether that module is generated.
type Scope struct {
	mode                      Mode
	baseOutputDir             string
	resolverRelativeTargetDir string
	whitelisted               map[string]struct{}
	blacklisted               map[string]struct{}
	sources                   SourceMap
	modules                   map[string]string
}

type ScopeOptions struct {
	Mode                      Mode
	BaseOutputDir             string
	ResolverRelativeTargetDir string
	WhitelistedModules        []string
	BlacklistedModules        []string
}

func NewScope(opts ScopeOptions, sources SourceMap) *Scope {
	return &Scope{
		mode:                      opts.Mode,
		baseOutputDir:             cleanSlash(opts.BaseOutputDir),
		resolverRelativeTargetDir: opts.ResolverRelativeTargetDir,
		whitelisted:               toSet(opts.WhitelistedModules),
		blacklisted:               toSet(opts.BlacklistedModules),
		sources:                   sources,
		modules:                   sources.inventory(),
	}
}

// Resolve returns the owning module of the element declared at pos, or false when the
// element is out of scope. nestedDirs are appended to the resolvers output directory.
func (s *Scope) Resolve(pos *ast.Position, nestedDirs ...string) (*ModuleLocation, bool) {
	if pos == nil || pos.Src == nil || pos.Src.BuiltIn {
		return nil, false
	}
	src, ok := s.sources[pos.Src.Name]
	if !ok {
		return nil, false
	}

	moduleDir, moduleName, ok := s.findModule(path.Dir(src.Path))
	if !ok {
		return nil, false
	}
	if s.mode == ModeModules && !s.IsWhitelisted(moduleName) {
		return nil, false
	}

	outputRoot := s.baseOutputDir
	if s.mode == ModeModules {
		outputRoot = moduleDir
	}
	elems := append([]string{outputRoot, s.resolverRelativeTargetDir}, nestedDirs...)

	return &ModuleLocation{
		ModuleName:                   moduleName,
		ModuleDir:                    moduleDir,
		ResolversOutputDir:           path.Join(elems...),
		RelativePathFromBaseToModule: relativeSegments(s.baseOutputDir, moduleDir),
	}, true
}

// IsWhitelisted reports whether a module passes the whitelist and blacklist.
func (s *Scope) IsWhitelisted(moduleName string) bool {
	if _, ok := s.blacklisted[moduleName]; ok {
		return false
	}
	if len(s.whitelisted) == 0 {
		return true
	}
	_, ok := s.whitelisted[moduleName]
	return ok
}

// findModule walks up from dir and stops at the first directory in the module inventory.
func (s *Scope) findModule(dir string) (string, string, bool) {
	for {
		if name, ok := s.modules[dir]; ok {
			return dir, name, true
		}
		if dir == s.baseOutputDir || dir == "." || dir == "/" {
			return "", "", false
		}
		dir = path.Dir(dir)
	}
}

func relativeSegments(base, dir string) []string {
	rel := relativePath(base, dir)
	if rel == "." || rel == "" {
		return []string{}
	}
	return strings.Split(rel, "/")
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
