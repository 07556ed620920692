package engine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/playforge/playforge/internal/domain"
)

// gameTypeKeywords map prompt words to game types, scanned in order so the
// more specific genres win over "arcade".
var gameTypeKeywords = []struct {
	gameType domain.GameType
	words    []string
}{
	{domain.GameTypePlatformer, []string{"platformer", "platform", "jump", "mario"}},
	{domain.GameTypeShooter, []string{"shooter", "shoot", "space invaders", "asteroids", "bullet"}},
	{domain.GameTypePuzzle, []string{"puzzle", "match", "tetris", "sliding", "memory"}},
	{domain.GameTypeRacing, []string{"racing", "race", "car", "driving"}},
}

// DetectGameType infers the game type from a creation prompt. Defaults to
// arcade when nothing matches.
func DetectGameType(prompt string) domain.GameType {
	lower := strings.ToLower(prompt)
	for _, entry := range gameTypeKeywords {
		for _, w := range entry.words {
			if strings.Contains(lower, w) {
				return entry.gameType
			}
		}
	}
	return domain.GameTypeArcade
}

// DetectEngine infers the requested engine from a creation prompt.
// Defaults to plain canvas.
func DetectEngine(prompt string) domain.Engine {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "three.js") || strings.Contains(lower, "3d"):
		return domain.EngineThree
	case strings.Contains(lower, "phaser"):
		return domain.EnginePhaser
	case strings.Contains(lower, "p5"):
		return domain.EngineP5
	default:
		return domain.EngineCanvas
	}
}

// featurePatterns detect feature tags in generated code.
var featurePatterns = []struct {
	name  string
	exprs []*regexp.Regexp
}{
	{"player_movement", compileAll(`player\.x`, `player\.y`, `velocity`, `\bmove`)},
	{"collision_detection", compileAll(`collision`, `intersect`, `overlap`, `bounds`)},
	{"scoring", compileAll(`score`, `points`, `highscore`)},
	{"sound_effects", compileAll(`audio`, `\bsound`, `music`, `play\(`)},
	{"animations", compileAll(`animation`, `sprite`, `tween`, `animate`)},
	{"particle_effects", compileAll(`particle`, `emitter`, `explosion`)},
	{"power_ups", compileAll(`powerup`, `power.up`, `bonus`, `pickup`)},
	{"enemies", compileAll(`enemy`, `enemies`, `monster`, `opponent`)},
	{"levels", compileAll(`level`, `stage`, `world`)},
	{"physics", compileAll(`gravity`, `physics`, `velocity`, `acceleration`)},
	{"input_handling", compileAll(`keyboard`, `keydown`, `mouse`, `touch`)},
	{"ui_elements", compileAll(`button`, `menu`, `hud`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// ExtractFeatures scans game code for recognizable feature tags. The result
// is sorted for stable output.
func ExtractFeatures(code string) []string {
	lower := strings.ToLower(code)
	var out []string
	for _, fp := range featurePatterns {
		for _, expr := range fp.exprs {
			if expr.MatchString(lower) {
				out = append(out, fp.name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// mergeFeatures unions two feature lists, sorted and deduplicated.
func mergeFeatures(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}
