package gamediff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/playforge/playforge/internal/domain"
)

// game builds an n-line snapshot with one line controlled by the caller.
func game(n int, line20 string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i == 20 {
			b.WriteString(line20)
		} else {
			fmt.Fprintf(&b, "var line%d = %d;", i, i)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func TestSummarizeIdentical(t *testing.T) {
	t.Parallel()

	s := NewSummarizer()
	code := game(100, "ctx.fillStyle = '#3498db';")
	report := s.Summarize(code, code)

	if report.ChangePercent != 0 {
		t.Fatalf("change percent = %v, want 0", report.ChangePercent)
	}
	if report.Impact != domain.ImpactLow {
		t.Fatalf("impact = %s, want low", report.Impact)
	}
	if report.Unreliable {
		t.Fatal("identical snapshots must not be unreliable")
	}
}

func TestSummarizeSingleLineChange(t *testing.T) {
	t.Parallel()

	s := NewSummarizer()
	oldCode := game(100, "ctx.fillStyle = '#3498db';")
	newCode := game(100, "ctx.fillStyle = '#e74c3c';")
	report := s.Summarize(oldCode, newCode)

	// 1 modified line out of 100.
	if report.ChangePercent != 1 {
		t.Fatalf("change percent = %v, want 1", report.ChangePercent)
	}
	if report.Impact != domain.ImpactLow {
		t.Fatalf("impact = %s, want low", report.Impact)
	}

	wantStatement := "Changed color #3498db to #e74c3c"
	if !hasStatement(report, wantStatement) {
		t.Fatalf("statements = %v, want %q", report.Statements, wantStatement)
	}
	if !hasStatement(report, "Modified visual code") {
		t.Fatalf("statements = %v, want a visual category note", report.Statements)
	}

	if len(report.Changes) != 1 {
		t.Fatalf("changes = %v, want one modified hunk", report.Changes)
	}
	ch := report.Changes[0]
	if ch.Kind != domain.ChangeModified || ch.StartLine != 20 || ch.EndLine != 20 {
		t.Fatalf("change = %+v, want modified line 20", ch)
	}
}

func TestSummarizeImpactThresholds(t *testing.T) {
	t.Parallel()

	s := NewSummarizer()

	tests := []struct {
		changed int
		want    domain.Impact
	}{
		{4, domain.ImpactLow},       // 4%
		{10, domain.ImpactMedium},   // 10%
		{30, domain.ImpactHigh},     // 30%
		{60, domain.ImpactCritical}, // 60%
	}
	for _, tt := range tests {
		oldCode := numbered(100, "old")
		newCode := numberedChanged(100, tt.changed)
		report := s.Summarize(oldCode, newCode)
		if report.Impact != tt.want {
			t.Errorf("%d%% change: impact = %s, want %s (pct %v)",
				tt.changed, report.Impact, tt.want, report.ChangePercent)
		}
	}
}

func TestSummarizeEngineInitIsCritical(t *testing.T) {
	t.Parallel()

	s := NewSummarizer()
	oldCode := game(100, "requestAnimationFrame(loop);")
	newCode := game(100, "setInterval(loop, 16);")
	report := s.Summarize(oldCode, newCode)

	// One line of a hundred, but the render loop hook changed.
	if report.Impact != domain.ImpactCritical {
		t.Fatalf("impact = %s, want critical for engine init change (pct %v)",
			report.Impact, report.ChangePercent)
	}
}

func TestSummarizeHugeRewriteIsUnreliable(t *testing.T) {
	t.Parallel()

	s := NewSummarizer()
	oldCode := numbered(50, "alpha")
	newCode := numbered(50, "omega")
	report := s.Summarize(oldCode, newCode)

	if !report.Unreliable {
		t.Fatalf("expected unreliable report at %v%% change", report.ChangePercent)
	}
	if report.Impact != domain.ImpactCritical {
		t.Fatalf("impact = %s, want critical", report.Impact)
	}
	if !hasStatement(report, "Rewrite too large for reliable line-by-line comparison") {
		t.Fatalf("statements = %v, missing the unreliability note", report.Statements)
	}
}

func TestSummarizePureAddition(t *testing.T) {
	t.Parallel()

	s := NewSummarizer()
	oldCode := numbered(100, "base")
	newCode := oldCode + "function extra() {}\nextra();\n"
	report := s.Summarize(oldCode, newCode)

	if !hasStatement(report, "Added 2 lines of code") {
		t.Fatalf("statements = %v, want an addition note", report.Statements)
	}
	if report.ChangePercent != 2 {
		t.Fatalf("change percent = %v, want 2", report.ChangePercent)
	}
}

func TestSummarizeCategoryDetection(t *testing.T) {
	t.Parallel()

	s := NewSummarizer()
	oldCode := numbered(100, "base")
	newCode := oldCode + "player.velocity += gravity;\nscore += 10;\n"
	report := s.Summarize(oldCode, newCode)

	if !hasStatement(report, "Modified physics code") {
		t.Fatalf("statements = %v, want a physics note", report.Statements)
	}
	if !hasStatement(report, "Modified scoring code") {
		t.Fatalf("statements = %v, want a scoring note", report.Statements)
	}
}

func hasStatement(report domain.DiffReport, want string) bool {
	for _, s := range report.Statements {
		if s == want {
			return true
		}
	}
	return false
}

// numbered builds n distinct lines carrying a tag.
func numbered(n int, tag string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "var %s%d = %d;\n", tag, i, i)
	}
	return b.String()
}

// numberedChanged is numbered(n, "old") with the first k lines rewritten.
func numberedChanged(n, k int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if i <= k {
			fmt.Fprintf(&b, "var changed%d = %d;\n", i, i*7)
		} else {
			fmt.Fprintf(&b, "var old%d = %d;\n", i, i)
		}
	}
	return b.String()
}
