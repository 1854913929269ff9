package codegen

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
)

// Pattern is a compiled resolver generation pattern. A leading "!" negates it; the zero
// value and the empty pattern match nothing.
type Pattern struct {
	raw    string
	negate bool
	g      glob.Glob
}

func CompilePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, nil
	}

	expr, negate := strings.CutPrefix(raw, "!")
	g, err := glob.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", raw, err)
	}

	return Pattern{raw: raw, negate: negate, g: g}, nil
}

func (p Pattern) Match(value string) bool {
	if p.g == nil {
		return false
	}
	return p.g.Match(value) != p.negate
}

func (p Pattern) String() string {
	return p.raw
}

// Patterns holds one generation pattern per resolver kind.
type Patterns map[ResolverKind]Pattern

type Decision string

const (
	// DecisionGenerate writes (or overwrites) the stub.
	DecisionGenerate Decision = "generate"
	// DecisionPreserve keeps the file on disk and only records its metadata.
	DecisionPreserve Decision = "preserve"
	DecisionSkip     Decision = "skip"
)

type PlannedResolver struct {
	Kind     ResolverKind
	Decision Decision
	Details  *ResolverDetails
	// Object is set for KindObject.
	Object *ObjectResolverDetails
}

// Plan lists every resolver file that is generated or preserved, ordered by path.
type Plan struct {
	Resolvers []*PlannedResolver
}

// Generated returns the resolvers whose stub must be written.
func (p *Plan) Generated() []*PlannedResolver {
	var generated []*PlannedResolver
	for _, r := range p.Resolvers {
		if r.Decision == DecisionGenerate {
			generated = append(generated, r)
		}
	}
	return generated
}

// FileExists reports whether a regular file or directory exists at path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Planner decides, per resolver, whether its stub is generated, preserved or skipped.
type Planner struct {
	patterns Patterns
	exists   func(path string) bool
	logger   zerolog.Logger
}

func NewPlanner(patterns Patterns, exists func(path string) bool, logger zerolog.Logger) *Planner {
	if exists == nil {
		exists = FileExists
	}
	return &Planner{
		patterns: patterns,
		exists:   exists,
		logger:   logger,
	}
}

// Decide applies the generation rules:
//
//	pattern matches                  -> generate
//	file exists                      -> preserve
//	object mapper misses fields      -> generate
//	otherwise                        -> skip
func (p *Planner) Decide(kind ResolverKind, details *ResolverDetails, object *ObjectResolverDetails) Decision {
	pattern := p.patterns[kind]
	if pattern.Match(details.NormalizedResolverName.WithModule) {
		return DecisionGenerate
	}
	if p.exists(details.ResolverFile.Path) {
		return DecisionPreserve
	}
	if object != nil && needsRuntimeSafetyStub(object) {
		return DecisionGenerate
	}

	p.logger.Debug().
		Str("kind", string(kind)).
		Str("resolver", details.NormalizedResolverName.WithModule).
		Msgf("Skipped %s resolver generation: %q. Pattern: %q.", kind, details.NormalizedResolverName.WithModule, pattern.String())
	return DecisionSkip
}

// needsRuntimeSafetyStub reports whether a mapped object must have a resolver because
// the mapper cannot be proven to provide every schema field.
func needsRuntimeSafetyStub(object *ObjectResolverDetails) bool {
	if object.Mapper == nil {
		return false
	}
	return !object.Mapper.FieldsKnown || len(object.MapperMissingFields) > 0
}

func (p *Planner) Plan(meta *ParsedGraphQLSchemaMeta) *Plan {
	plan := &Plan{}

	for _, kind := range ResolverKinds {
		if kind == KindObject {
			continue
		}
		resolvers := meta.Resolvers(kind)
		for _, key := range slices.Sorted(maps.Keys(resolvers)) {
			details := resolvers[key]
			decision := p.Decide(kind, details, nil)
			if decision == DecisionSkip {
				continue
			}
			plan.Resolvers = append(plan.Resolvers, &PlannedResolver{Kind: kind, Decision: decision, Details: details})
		}
	}

	objects := meta.UserDefinedSchemaTypeMap.Object
	for _, schemaType := range slices.Sorted(maps.Keys(objects)) {
		modules := objects[schemaType]
		for _, key := range slices.Sorted(maps.Keys(modules)) {
			object := modules[key]
			decision := p.Decide(KindObject, &object.ResolverDetails, object)
			if decision == DecisionSkip {
				continue
			}
			plan.Resolvers = append(plan.Resolvers, &PlannedResolver{Kind: KindObject, Decision: decision, Details: &object.ResolverDetails, Object: object})
		}
	}

	slices.SortFunc(plan.Resolvers, func(a, b *PlannedResolver) int {
		return strings.Compare(a.Details.ResolverFile.Path, b.Details.ResolverFile.Path)
	})

	return plan
}
