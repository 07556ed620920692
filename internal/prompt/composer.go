package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/playforge/playforge/internal/domain"
)

// ErrPayloadTooLarge is returned when the current code or the composed
// prompt exceeds the configured limit. Truncating code mid-modification
// would corrupt the game, so the condition is surfaced instead.
var ErrPayloadTooLarge = errors.New("prompt payload too large")

const systemPreamble = `You are an expert game developer AI that creates and modifies HTML5 games.
You generate complete, self-contained HTML files that run immediately in a browser,
using CDN-hosted libraries only. All HTML, CSS and JavaScript goes in one file.`

const outputInstructions = `OUTPUT FORMAT:
Return the complete HTML document, nothing else. After the code, briefly
explain the changes you made.`

// Composer renders final instruction strings. Size limits are bytes of the
// embedded code and of the finished prompt respectively.
type Composer struct {
	MaxCodeBytes   int
	MaxPromptBytes int
}

// NewComposer creates a composer with the given size limits. Zero or
// negative limits disable the corresponding check.
func NewComposer(maxCodeBytes, maxPromptBytes int) *Composer {
	return &Composer{MaxCodeBytes: maxCodeBytes, MaxPromptBytes: maxPromptBytes}
}

// ComposeModification renders the instruction string for a modification
// request. fixIssues carries validator warnings accumulated across retry
// attempts; empty on the first attempt.
func (c *Composer) ComposeModification(ctx Context, plan domain.ModificationPlan, userMessage string, fixIssues []string) (string, error) {
	if ctx.Game == nil {
		return "", errors.New("compose modification: no active game")
	}
	if c.MaxCodeBytes > 0 && len(ctx.Game.Code) > c.MaxCodeBytes {
		return "", fmt.Errorf("%w: code is %d bytes (limit %d)", ErrPayloadTooLarge, len(ctx.Game.Code), c.MaxCodeBytes)
	}

	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n")

	writeHistory(&b, ctx.Messages)
	writeGameState(&b, ctx.Game)

	b.WriteString("USER REQUEST:\n")
	b.WriteString(userMessage)
	b.WriteString("\n\n")

	writePlanInstructions(&b, plan)

	if len(fixIssues) > 0 {
		b.WriteString("THE PREVIOUS ATTEMPT FAILED VALIDATION. Fix these specific issues:\n")
		for _, issue := range fixIssues {
			b.WriteString("- ")
			b.WriteString(issue)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(outputInstructions)

	out := b.String()
	if c.MaxPromptBytes > 0 && len(out) > c.MaxPromptBytes {
		return "", fmt.Errorf("%w: prompt is %d bytes (limit %d)", ErrPayloadTooLarge, len(out), c.MaxPromptBytes)
	}
	return out, nil
}

// CreationSpec describes a new game to generate.
type CreationSpec struct {
	Description  string
	Type         domain.GameType
	Engine       domain.Engine
	Features     []string
	TemplateHTML string
}

// ComposeCreation renders the instruction string for generating a new game.
func (c *Composer) ComposeCreation(ctx Context, spec CreationSpec) (string, error) {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n")

	writeHistory(&b, ctx.Messages)

	fmt.Fprintf(&b, "TASK: Create a %s game using the %s engine based on this description:\n%q\n\n", spec.Type, spec.Engine, spec.Description)
	if len(spec.Features) > 0 {
		fmt.Fprintf(&b, "REQUESTED FEATURES: %s\n\n", strings.Join(spec.Features, ", "))
	}
	if spec.TemplateHTML != "" {
		b.WriteString("STARTER TEMPLATE (use as a base, keep its structure):\n")
		b.WriteString(spec.TemplateHTML)
		b.WriteString("\n\n")
	}

	b.WriteString("REQUIREMENTS:\n")
	b.WriteString("- Complete, playable HTML5 game in a single file\n")
	b.WriteString("- Game loop, controls and on-screen instructions\n")
	b.WriteString("- Win/lose conditions and scoring where they fit the genre\n")
	b.WriteString("- Responsive layout\n\n")

	b.WriteString(outputInstructions)

	out := b.String()
	if c.MaxPromptBytes > 0 && len(out) > c.MaxPromptBytes {
		return "", fmt.Errorf("%w: prompt is %d bytes (limit %d)", ErrPayloadTooLarge, len(out), c.MaxPromptBytes)
	}
	return out, nil
}

func writeHistory(b *strings.Builder, messages []domain.ConversationMessage) {
	if len(messages) == 0 {
		return
	}
	b.WriteString("CONVERSATION HISTORY:\n")
	for _, msg := range messages {
		label := "User"
		if msg.Role == domain.RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(b, "%s: %s\n", label, msg.Text)
	}
	b.WriteString("\n")
}

func writeGameState(b *strings.Builder, game *domain.GameState) {
	fmt.Fprintf(b, "CURRENT GAME: %s\n", game.Summary())
	if len(game.Features) > 0 {
		fmt.Fprintf(b, "ACTIVE FEATURES: %s\n", strings.Join(game.Features, ", "))
	}
	b.WriteString("CURRENT CODE:\n")
	b.WriteString(game.Code)
	b.WriteString("\n\n")
}

func writePlanInstructions(b *strings.Builder, plan domain.ModificationPlan) {
	fmt.Fprintf(b, "MODIFICATION STRATEGY: %s (%s)\n", plan.Strategy, plan.Complexity)

	if plan.Diagnostic {
		b.WriteString("Before changing anything, explain the root cause of the reported problem.\n")
	}

	if plan.Strategy == domain.StrategyRebuild {
		// A rebuild drops preservation constraints entirely.
		b.WriteString("You may regenerate the game from scratch; prior structure need not survive.\n\n")
		return
	}

	if rs := plan.RegionList(); len(rs) > 0 {
		fmt.Fprintf(b, "Target systems: %s\n", joinRegions(rs))
	}
	if preserved := plan.PreservedRegions(); len(preserved) > 0 {
		b.WriteString("DO NOT BREAK the following systems; leave their code untouched:\n")
		for _, r := range preserved {
			fmt.Fprintf(b, "- %s\n", r)
		}
	}
	b.WriteString("\n")
}

func joinRegions(rs []domain.Region) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
