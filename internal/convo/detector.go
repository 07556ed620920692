package convo

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/playforge/playforge/internal/domain"
)

// Detector classifies messages against a fixed vocabulary. It is a pure
// function of its inputs and safe for concurrent use.
type Detector struct {
	vocab Vocabulary

	mu        sync.Mutex
	wordExprs map[string]*regexp.Regexp
}

// NewDetector creates a detector over the given vocabulary.
func NewDetector(vocab Vocabulary) *Detector {
	if vocab.Saturation <= 0 {
		vocab.Saturation = 3
	}
	if vocab.ContextTurns <= 0 {
		vocab.ContextTurns = 5
	}
	return &Detector{
		vocab:     vocab,
		wordExprs: make(map[string]*regexp.Regexp),
	}
}

// Detect classifies a message and extracts its entities. The history is
// used for the context boost and the first-message rule; it is never
// mutated. A message with no trigger matches falls back to request_help at
// confidence 0.
func (d *Detector) Detect(message string, history []domain.ConversationMessage) (domain.IntentResult, domain.ElementSet) {
	lower := strings.ToLower(message)

	scores := make(map[domain.Intent]float64, len(d.vocab.Triggers))
	for intent, triggers := range d.vocab.Triggers {
		matches := 0
		for _, trigger := range triggers {
			if d.matches(lower, trigger) {
				matches++
			}
		}
		scores[intent] = saturate(float64(matches) / float64(d.vocab.Saturation))
	}

	for intent, boost := range d.contextBoost(history) {
		scores[intent] = saturate(scores[intent] + boost)
	}

	result := domain.IntentResult{Scores: scores}

	// First message of a session is always a creation request.
	if firstUserMessage(history) {
		result.Intent = domain.IntentCreateGame
		result.Confidence = scores[domain.IntentCreateGame]
		return result, d.Elements(message)
	}

	// Highest score wins; domain.Intents order breaks ties.
	best := domain.Intent("")
	bestScore := 0.0
	for _, intent := range domain.Intents {
		if s := scores[intent]; s > bestScore {
			best, bestScore = intent, s
		}
	}
	if best == "" {
		best = domain.IntentRequestHelp
	}
	result.Intent = best
	result.Confidence = bestScore

	return result, d.Elements(message)
}

// contextBoost returns per-intent score increments based on what recent
// assistant turns discussed, using the same trigger lists.
func (d *Detector) contextBoost(history []domain.ConversationMessage) map[domain.Intent]float64 {
	boost := make(map[domain.Intent]float64)
	if d.vocab.ContextBoost <= 0 {
		return boost
	}

	seen := 0
	for i := len(history) - 1; i >= 0 && seen < d.vocab.ContextTurns; i-- {
		if history[i].Role != domain.RoleAssistant {
			continue
		}
		seen++
		lower := strings.ToLower(history[i].Text)
		for intent, triggers := range d.vocab.Triggers {
			if boost[intent] > 0 {
				continue
			}
			for _, trigger := range triggers {
				if d.matches(lower, trigger) {
					boost[intent] = d.vocab.ContextBoost
					break
				}
			}
		}
	}
	return boost
}

// Elements extracts colors, features, objects, actions and numbers from a
// message. Color synonyms collapse to their canonical family name.
func (d *Detector) Elements(message string) domain.ElementSet {
	lower := strings.ToLower(message)
	var set domain.ElementSet

	for _, family := range sortedKeys(d.vocab.ColorFamilies) {
		for _, synonym := range d.vocab.ColorFamilies[family] {
			if d.matches(lower, synonym) {
				set.Colors = append(set.Colors, family)
				break
			}
		}
	}
	for _, kw := range d.vocab.Features {
		if d.matches(lower, kw) {
			set.Features = append(set.Features, kw)
		}
	}
	for _, kw := range d.vocab.Objects {
		if d.matches(lower, kw) {
			set.Objects = append(set.Objects, kw)
		}
	}
	for _, kw := range d.vocab.Actions {
		if d.matches(lower, kw) {
			set.Actions = append(set.Actions, kw)
		}
	}
	set.Numbers = extractNumbers(message)

	return set
}

var numberExpr = regexp.MustCompile(`\b(\d+)\s*(px|%)?`)

func extractNumbers(message string) []domain.NumberMatch {
	var out []domain.NumberMatch
	for _, m := range numberExpr.FindAllStringSubmatchIndex(message, -1) {
		value, err := strconv.Atoi(message[m[2]:m[3]])
		if err != nil {
			continue
		}
		unit := ""
		if m[4] >= 0 {
			unit = message[m[4]:m[5]]
		}
		out = append(out, domain.NumberMatch{Value: value, Unit: unit, Offset: m[0]})
	}
	return out
}

// matches reports whether trigger occurs in the lowercased text. Multi-word
// phrases match as substrings, single words on word boundaries so that
// "red" does not fire inside "bored".
func (d *Detector) matches(lower, trigger string) bool {
	if strings.Contains(trigger, " ") || strings.Contains(trigger, ".") || strings.Contains(trigger, "'") {
		return strings.Contains(lower, trigger)
	}
	return d.wordExpr(trigger).MatchString(lower)
}

func (d *Detector) wordExpr(word string) *regexp.Regexp {
	d.mu.Lock()
	defer d.mu.Unlock()
	if re, ok := d.wordExprs[word]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	d.wordExprs[word] = re
	return re
}

// ContainsRebuildRequest reports whether the message explicitly asks for an
// engine change or full rebuild.
func ContainsRebuildRequest(message string) bool {
	lower := strings.ToLower(message)
	for _, trigger := range RebuildTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

func firstUserMessage(history []domain.ConversationMessage) bool {
	for _, msg := range history {
		if msg.Role == domain.RoleUser {
			return false
		}
	}
	return true
}

func saturate(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
