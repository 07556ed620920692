// Package plan maps detected intent and entities to a modification strategy.
package plan

import (
	"strings"

	"github.com/playforge/playforge/internal/convo"
	"github.com/playforge/playforge/internal/domain"
)

// Input is everything the planner considers for one request.
type Input struct {
	Message  string
	Intent   domain.IntentResult
	Elements domain.ElementSet
	// Features are the current game's feature tags.
	Features []string
}

// rule is one row of the decision table. The first rule whose predicate
// matches produces the plan; the table ends with a catch-all, making the
// planner a total function.
type rule struct {
	name  string
	match func(Input) bool
	build func(Input) domain.ModificationPlan
}

// featureRegions maps feature keywords to the subsystems they implicate.
var featureRegions = map[string][]domain.Region{
	"coins":     {domain.RegionRendering, domain.RegionScoring},
	"powerups":  {domain.RegionRendering, domain.RegionPhysics},
	"enemies":   {domain.RegionRendering, domain.RegionPhysics},
	"platforms": {domain.RegionRendering, domain.RegionPhysics},
	"levels":    {domain.RegionRendering, domain.RegionScoring},
	"sound":     {domain.RegionAudio},
	"music":     {domain.RegionAudio},
	"particles": {domain.RegionRendering},
	"effects":   {domain.RegionRendering},
	"scoring":   {domain.RegionScoring},
	"timer":     {domain.RegionScoring, domain.RegionRendering},
	"health":    {domain.RegionScoring, domain.RegionRendering},
	"lives":     {domain.RegionScoring},
	"weapons":   {domain.RegionInput, domain.RegionPhysics},
}

// physicsWords are entity keywords that implicate the physics system.
var physicsWords = []string{"speed", "gravity", "jump", "faster", "slower", "velocity", "bounce"}

// Planner evaluates the decision table. Stateless and safe for concurrent use.
type Planner struct {
	rules []rule
}

// New creates a planner with the built-in rule table.
func New() *Planner {
	return &Planner{rules: buildRules()}
}

// Plan produces a ModificationPlan for the request. Total: any input not
// matched by an explicit rule falls through to a comprehensive plan.
func (p *Planner) Plan(in Input) domain.ModificationPlan {
	for _, r := range p.rules {
		if r.match(in) {
			return r.build(in)
		}
	}
	// Unreachable: the table ends with a catch-all.
	return domain.ModificationPlan{Strategy: domain.StrategyComprehensive, Complexity: domain.ComplexityModerate}
}

func buildRules() []rule {
	return []rule{
		{
			// Explicit engine change or rebuild request overrides everything.
			name: "rebuild",
			match: func(in Input) bool {
				return convo.ContainsRebuildRequest(in.Message)
			},
			build: func(in Input) domain.ModificationPlan {
				return domain.ModificationPlan{
					Strategy:   domain.StrategyRebuild,
					Complexity: domain.ComplexityMajor,
				}
			},
		},
		{
			name: "visual-color-only",
			match: func(in Input) bool {
				return in.Intent.Intent == domain.IntentModifyVisual && in.Elements.OnlyColors()
			},
			build: func(in Input) domain.ModificationPlan {
				return domain.ModificationPlan{
					Strategy:   domain.StrategySurgical,
					Regions:    regions(domain.RegionRendering),
					Complexity: domain.ComplexitySimple,
				}
			},
		},
		{
			name: "visual-general",
			match: func(in Input) bool {
				return in.Intent.Intent == domain.IntentModifyVisual
			},
			build: func(in Input) domain.ModificationPlan {
				return domain.ModificationPlan{
					Strategy:   domain.StrategySurgical,
					Regions:    regions(domain.RegionRendering),
					Complexity: domain.ComplexityModerate,
				}
			},
		},
		{
			name: "gameplay-physics",
			match: func(in Input) bool {
				return in.Intent.Intent == domain.IntentModifyGameplay && mentionsPhysics(in)
			},
			build: func(in Input) domain.ModificationPlan {
				strategy := domain.StrategySurgical
				// New objects imply structural additions beyond tuning.
				if len(in.Elements.Objects) > 0 || len(in.Elements.Features) > 0 {
					strategy = domain.StrategyIncremental
				}
				return domain.ModificationPlan{
					Strategy:   strategy,
					Regions:    regions(domain.RegionPhysics),
					Complexity: domain.ComplexityModerate,
				}
			},
		},
		{
			name: "gameplay-general",
			match: func(in Input) bool {
				return in.Intent.Intent == domain.IntentModifyGameplay
			},
			build: func(in Input) domain.ModificationPlan {
				return domain.ModificationPlan{
					Strategy:   domain.StrategyIncremental,
					Regions:    regions(domain.RegionPhysics, domain.RegionInput),
					Complexity: domain.ComplexityModerate,
				}
			},
		},
		{
			name: "add-feature",
			match: func(in Input) bool {
				return in.Intent.Intent == domain.IntentAddFeature
			},
			build: func(in Input) domain.ModificationPlan {
				rs := make(map[domain.Region]bool)
				for _, feature := range in.Elements.Features {
					for _, r := range featureRegions[feature] {
						rs[r] = true
					}
				}
				if len(rs) == 0 {
					rs[domain.RegionRendering] = true
				}
				return domain.ModificationPlan{
					Strategy:   domain.StrategyIncremental,
					Regions:    rs,
					Complexity: featureComplexity(len(in.Elements.Features)),
				}
			},
		},
		{
			// Region left unresolved: the model has to locate the fault.
			name: "fix-bug",
			match: func(in Input) bool {
				return in.Intent.Intent == domain.IntentFixBug
			},
			build: func(in Input) domain.ModificationPlan {
				return domain.ModificationPlan{
					Strategy:   domain.StrategySurgical,
					Complexity: domain.ComplexityModerate,
					Diagnostic: true,
				}
			},
		},
		{
			name:  "fallback",
			match: func(Input) bool { return true },
			build: func(in Input) domain.ModificationPlan {
				return domain.ModificationPlan{
					Strategy:   domain.StrategyComprehensive,
					Complexity: domain.ComplexityModerate,
				}
			},
		},
	}
}

func mentionsPhysics(in Input) bool {
	lower := strings.ToLower(in.Message)
	for _, w := range physicsWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func featureComplexity(distinct int) domain.Complexity {
	switch {
	case distinct <= 1:
		return domain.ComplexityModerate
	case distinct <= 3:
		return domain.ComplexityComplex
	default:
		return domain.ComplexityMajor
	}
}

func regions(rs ...domain.Region) map[domain.Region]bool {
	m := make(map[domain.Region]bool, len(rs))
	for _, r := range rs {
		m[r] = true
	}
	return m
}
