// Package gamediff compares two game code snapshots and produces a
// human-readable change report. Line-based only: no JS/HTML parsing.
package gamediff

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/playforge/playforge/internal/domain"
)

// Impact thresholds as change percentage of the previous version.
const (
	mediumThreshold   = 5.0
	highThreshold     = 20.0
	criticalThreshold = 50.0
	// Past this, line alignment is mostly noise (full rebuilds).
	unreliableThreshold = 80.0
)

// category is one semantic keyword bucket scanned over changed lines.
type category struct {
	name     string
	keywords []string
}

var categories = []category{
	{"physics", []string{"gravity", "velocity", "friction", "bounce"}},
	{"controls", []string{"key", "pointer", "touch", "gamepad"}},
	{"scoring", []string{"score", "point", "achievement"}},
	{"visual", []string{"color", "fill", "sprite", "animation"}},
}

// engineInitMarkers flag lines whose modification is always critical.
var engineInitMarkers = []string{"new phaser.game", "requestanimationframe"}

var hexColorExpr = regexp.MustCompile(`#[0-9a-fA-F]{6}\b|#[0-9a-fA-F]{3}\b|0x[0-9a-fA-F]{6}\b`)

// Summarizer produces DiffReports. Stateless and safe for concurrent use.
type Summarizer struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewSummarizer creates a summarizer.
func NewSummarizer() *Summarizer {
	return &Summarizer{dmp: diffmatchpatch.New()}
}

// Summarize compares the previous and proposed snapshots. It never fails:
// rebuild-scale rewrites yield a critical report flagged unreliable.
func (s *Summarizer) Summarize(oldCode, newCode string) domain.DiffReport {
	if oldCode == newCode {
		return domain.DiffReport{ChangePercent: 0, Impact: domain.ImpactLow}
	}

	oldLines := countLines(oldCode)

	// Line-mode diff: map lines to runes, diff, map back.
	c1, c2, lineIndex := s.dmp.DiffLinesToChars(oldCode, newCode)
	diffs := s.dmp.DiffCharsToLines(s.dmp.DiffMain(c1, c2, false), lineIndex)

	var (
		changes                  []domain.LineChange
		added, removed, modified int
		removedText, addedText   []string
	)

	oldAt, newAt := 1, 1
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldAt += n
			newAt += n
		case diffmatchpatch.DiffDelete:
			removedText = append(removedText, splitLines(d.Text)...)
			// A delete immediately followed by an insert is a modification.
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				ins := diffs[i+1]
				m := countLines(ins.Text)
				addedText = append(addedText, splitLines(ins.Text)...)

				paired := min(n, m)
				modified += paired
				changes = append(changes, domain.LineChange{
					Kind: domain.ChangeModified, StartLine: oldAt, EndLine: oldAt + paired - 1,
				})
				if n > m {
					removed += n - m
					changes = append(changes, domain.LineChange{
						Kind: domain.ChangeRemoved, StartLine: oldAt + paired, EndLine: oldAt + n - 1,
					})
				} else if m > n {
					added += m - n
					changes = append(changes, domain.LineChange{
						Kind: domain.ChangeAdded, StartLine: newAt + paired, EndLine: newAt + m - 1,
					})
				}
				oldAt += n
				newAt += m
				i++ // consumed the insert
				continue
			}
			removed += n
			changes = append(changes, domain.LineChange{
				Kind: domain.ChangeRemoved, StartLine: oldAt, EndLine: oldAt + n - 1,
			})
			oldAt += n
		case diffmatchpatch.DiffInsert:
			addedText = append(addedText, splitLines(d.Text)...)
			added += n
			changes = append(changes, domain.LineChange{
				Kind: domain.ChangeAdded, StartLine: newAt, EndLine: newAt + n - 1,
			})
			newAt += n
		}
	}

	pct := float64(added+removed+modified) / float64(max(1, oldLines)) * 100
	if pct > 100 {
		pct = 100
	}

	report := domain.DiffReport{
		ChangePercent: round2(pct),
		Changes:       changes,
		Impact:        impactFor(pct),
	}
	report.Statements = buildStatements(removedText, addedText, added, removed, modified)

	if touchesEngineInit(removedText) || touchesEngineInit(addedText) {
		report.Impact = domain.ImpactCritical
	}
	if pct >= unreliableThreshold {
		report.Impact = domain.ImpactCritical
		report.Unreliable = true
		report.Statements = append(report.Statements,
			"Rewrite too large for reliable line-by-line comparison")
	}

	return report
}

func buildStatements(removedText, addedText []string, added, removed, modified int) []string {
	var out []string

	// Per-category notes over changed lines.
	changed := make([]string, 0, len(removedText)+len(addedText))
	changed = append(changed, removedText...)
	changed = append(changed, addedText...)
	for _, cat := range categories {
		if linesMention(changed, cat.keywords) {
			out = append(out, fmt.Sprintf("Modified %s code", cat.name))
		}
	}

	// Concrete before/after color pairs where they can be lined up.
	oldColors := extractColors(removedText)
	newColors := extractColors(addedText)
	gone := subtract(oldColors, newColors)
	fresh := subtract(newColors, oldColors)
	for i := 0; i < len(gone) && i < len(fresh); i++ {
		out = append(out, fmt.Sprintf("Changed color %s to %s", gone[i], fresh[i]))
	}

	switch {
	case added > 0 && removed == 0 && modified == 0:
		out = append(out, fmt.Sprintf("Added %d lines of code", added))
	case removed > 0 && added == 0 && modified == 0:
		out = append(out, fmt.Sprintf("Removed %d lines of code", removed))
	}

	if len(out) == 0 {
		out = append(out, "Minor code adjustments")
	}
	return out
}

func impactFor(pct float64) domain.Impact {
	switch {
	case pct < mediumThreshold:
		return domain.ImpactLow
	case pct < highThreshold:
		return domain.ImpactMedium
	case pct < criticalThreshold:
		return domain.ImpactHigh
	default:
		return domain.ImpactCritical
	}
}

func touchesEngineInit(lines []string) bool {
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, marker := range engineInitMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

func linesMention(lines []string, keywords []string) bool {
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func extractColors(lines []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range lines {
		for _, hex := range hexColorExpr.FindAllString(line, -1) {
			if !seen[hex] {
				seen[hex] = true
				out = append(out, hex)
			}
		}
	}
	return out
}

func subtract(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var out []string
	for _, v := range a {
		if !inB[v] {
			out = append(out, v)
		}
	}
	return out
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
