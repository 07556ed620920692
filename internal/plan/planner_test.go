package plan

import (
	"testing"

	"github.com/playforge/playforge/internal/domain"
)

func TestPlanDecisionTable(t *testing.T) {
	t.Parallel()

	p := New()

	tests := []struct {
		name           string
		in             Input
		wantStrategy   domain.Strategy
		wantComplexity domain.Complexity
		wantRegions    []domain.Region
		wantDiagnostic bool
	}{
		{
			name: "rebuild request overrides intent",
			in: Input{
				Message: "rebuild this with three.js",
				Intent:  domain.IntentResult{Intent: domain.IntentModifyVisual},
			},
			wantStrategy:   domain.StrategyRebuild,
			wantComplexity: domain.ComplexityMajor,
		},
		{
			name: "color-only visual change is surgical and simple",
			in: Input{
				Message:  "make the player red",
				Intent:   domain.IntentResult{Intent: domain.IntentModifyVisual},
				Elements: domain.ElementSet{Colors: []string{"red"}},
			},
			wantStrategy:   domain.StrategySurgical,
			wantComplexity: domain.ComplexitySimple,
			wantRegions:    []domain.Region{domain.RegionRendering},
		},
		{
			name: "general visual change is moderate",
			in: Input{
				Message:  "make the player bigger",
				Intent:   domain.IntentResult{Intent: domain.IntentModifyVisual},
				Elements: domain.ElementSet{Objects: []string{"player"}},
			},
			wantStrategy:   domain.StrategySurgical,
			wantComplexity: domain.ComplexityModerate,
			wantRegions:    []domain.Region{domain.RegionRendering},
		},
		{
			name: "physics tuning without new objects stays surgical",
			in: Input{
				Message: "increase the gravity a bit",
				Intent:  domain.IntentResult{Intent: domain.IntentModifyGameplay},
			},
			wantStrategy:   domain.StrategySurgical,
			wantComplexity: domain.ComplexityModerate,
			wantRegions:    []domain.Region{domain.RegionPhysics},
		},
		{
			name: "physics change with new objects becomes incremental",
			in: Input{
				Message:  "make the ball bounce higher",
				Intent:   domain.IntentResult{Intent: domain.IntentModifyGameplay},
				Elements: domain.ElementSet{Objects: []string{"ball"}},
			},
			wantStrategy:   domain.StrategyIncremental,
			wantComplexity: domain.ComplexityModerate,
			wantRegions:    []domain.Region{domain.RegionPhysics},
		},
		{
			name: "single feature is moderate",
			in: Input{
				Message:  "add coins",
				Intent:   domain.IntentResult{Intent: domain.IntentAddFeature},
				Elements: domain.ElementSet{Features: []string{"coins"}},
			},
			wantStrategy:   domain.StrategyIncremental,
			wantComplexity: domain.ComplexityModerate,
			wantRegions:    []domain.Region{domain.RegionRendering, domain.RegionScoring},
		},
		{
			name: "three features are complex",
			in: Input{
				Message:  "add coins, enemies and sound",
				Intent:   domain.IntentResult{Intent: domain.IntentAddFeature},
				Elements: domain.ElementSet{Features: []string{"coins", "enemies", "sound"}},
			},
			wantStrategy:   domain.StrategyIncremental,
			wantComplexity: domain.ComplexityComplex,
			wantRegions: []domain.Region{
				domain.RegionPhysics, domain.RegionRendering,
				domain.RegionScoring, domain.RegionAudio,
			},
		},
		{
			name: "bug fix is diagnostic with no fenced regions",
			in: Input{
				Message: "the jump is broken",
				Intent:  domain.IntentResult{Intent: domain.IntentFixBug},
			},
			wantStrategy:   domain.StrategySurgical,
			wantComplexity: domain.ComplexityModerate,
			wantDiagnostic: true,
		},
		{
			name: "unmatched intent falls through to comprehensive",
			in: Input{
				Message: "hmm",
				Intent:  domain.IntentResult{Intent: domain.IntentAskQuestion},
			},
			wantStrategy:   domain.StrategyComprehensive,
			wantComplexity: domain.ComplexityModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := p.Plan(tt.in)
			if got.Strategy != tt.wantStrategy {
				t.Errorf("strategy = %s, want %s", got.Strategy, tt.wantStrategy)
			}
			if got.Complexity != tt.wantComplexity {
				t.Errorf("complexity = %s, want %s", got.Complexity, tt.wantComplexity)
			}
			if got.Diagnostic != tt.wantDiagnostic {
				t.Errorf("diagnostic = %v, want %v", got.Diagnostic, tt.wantDiagnostic)
			}
			gotRegions := got.RegionList()
			if len(gotRegions) != len(tt.wantRegions) {
				t.Fatalf("regions = %v, want %v", gotRegions, tt.wantRegions)
			}
			for i, r := range tt.wantRegions {
				if gotRegions[i] != r {
					t.Errorf("regions[%d] = %s, want %s", i, gotRegions[i], r)
				}
			}
		})
	}
}

func TestPlanIsTotal(t *testing.T) {
	t.Parallel()

	p := New()
	for _, intent := range domain.Intents {
		got := p.Plan(Input{Message: "x", Intent: domain.IntentResult{Intent: intent}})
		if got.Strategy == "" || got.Complexity == "" {
			t.Errorf("intent %s produced an empty plan", intent)
		}
	}
}
