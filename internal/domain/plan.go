package domain

// Strategy is the coarse modification approach handed to the AI call.
type Strategy string

const (
	// StrategySurgical limits the AI to small targeted edits.
	StrategySurgical Strategy = "surgical"
	// StrategyIncremental allows new code alongside preserved systems.
	StrategyIncremental Strategy = "incremental"
	// StrategyComprehensive allows broad restructuring.
	StrategyComprehensive Strategy = "comprehensive"
	// StrategyRebuild discards preservation constraints entirely.
	StrategyRebuild Strategy = "rebuild"
)

// Region names a code subsystem implicated by a modification.
type Region string

const (
	RegionPhysics   Region = "physics"
	RegionRendering Region = "rendering"
	RegionInput     Region = "input"
	RegionScoring   Region = "scoring"
	RegionAudio     Region = "audio"
)

// AllRegions lists every known region, in stable output order.
var AllRegions = []Region{RegionPhysics, RegionRendering, RegionInput, RegionScoring, RegionAudio}

// Complexity is the estimated effort bucket for a modification.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityMajor    Complexity = "major"
)

// ModificationPlan is the planner's output: strategy, implicated regions and
// effort estimate. Transient; only the resulting version persists.
type ModificationPlan struct {
	Strategy   Strategy        `json:"strategy"`
	Regions    map[Region]bool `json:"regions,omitempty"`
	Complexity Complexity      `json:"complexity"`
	// Diagnostic asks the AI to explain root cause before fixing.
	Diagnostic bool `json:"diagnostic,omitempty"`
}

// RegionList returns the implicated regions in stable order.
func (p ModificationPlan) RegionList() []Region {
	var out []Region
	for _, r := range AllRegions {
		if p.Regions[r] {
			out = append(out, r)
		}
	}
	return out
}

// PreservedRegions returns the regions the AI must not touch. Empty for
// rebuild plans and for plans with no implicated regions (nothing can be
// safely fenced off when the target is unknown).
func (p ModificationPlan) PreservedRegions() []Region {
	if p.Strategy == StrategyRebuild || len(p.Regions) == 0 {
		return nil
	}
	var out []Region
	for _, r := range AllRegions {
		if !p.Regions[r] {
			out = append(out, r)
		}
	}
	return out
}
