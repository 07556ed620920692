// Package engine orchestrates the chat pipeline: intent detection,
// planning, prompt composition, provider calls, validation and version
// bookkeeping.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/ai"
	"github.com/playforge/playforge/internal/convlog"
	"github.com/playforge/playforge/internal/convo"
	"github.com/playforge/playforge/internal/domain"
	"github.com/playforge/playforge/internal/gamediff"
	"github.com/playforge/playforge/internal/gametpl"
	"github.com/playforge/playforge/internal/plan"
	"github.com/playforge/playforge/internal/prompt"
	"github.com/playforge/playforge/internal/store"
	"github.com/playforge/playforge/internal/validate"
)

// Options tune the engine.
type Options struct {
	// MaxValidationRetries bounds generation attempts per request.
	MaxValidationRetries int
	// MaxCodeBytes bounds stored game code and code embedded in prompts.
	MaxCodeBytes int
	// MaxPromptBytes bounds the finished prompt.
	MaxPromptBytes int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxValidationRetries: 3,
		MaxCodeBytes:         500_000,
		MaxPromptBytes:       1_000_000,
	}
}

// Engine runs the chat pipeline. All pipeline stages are stateless, so one
// engine serves all sessions concurrently; per-session serialization of
// modifications is the store's job.
type Engine struct {
	repo       store.Repository
	client     ai.Client
	detector   *convo.Detector
	planner    *plan.Planner
	composer   *prompt.Composer
	summarizer *gamediff.Summarizer
	validator  *validate.Validator
	templates  *gametpl.Registry
	audit      convlog.Logger
	logger     *slog.Logger
	maxRetries int
}

// New creates an engine.
func New(repo store.Repository, client ai.Client, templates *gametpl.Registry, audit convlog.Logger, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if audit == nil {
		audit = convlog.Noop{}
	}
	if opts.MaxValidationRetries <= 0 {
		opts.MaxValidationRetries = DefaultOptions().MaxValidationRetries
	}
	return &Engine{
		repo:       repo,
		client:     client,
		detector:   convo.NewDetector(convo.DefaultVocabulary()),
		planner:    plan.New(),
		composer:   prompt.NewComposer(opts.MaxCodeBytes, opts.MaxPromptBytes),
		summarizer: gamediff.NewSummarizer(),
		validator:  validate.New(opts.MaxCodeBytes),
		templates:  templates,
		audit:      audit,
		logger:     logger,
		maxRetries: opts.MaxValidationRetries,
	}
}

// Result is the outcome of one chat turn.
type Result struct {
	Reply      string                   `json:"reply"`
	Intent     domain.IntentResult      `json:"intent"`
	Elements   domain.ElementSet        `json:"elements"`
	Plan       *domain.ModificationPlan `json:"plan,omitempty"`
	Game       *domain.GameState        `json:"game,omitempty"`
	Version    *domain.GameVersion      `json:"version,omitempty"`
	Diff       *domain.DiffReport       `json:"diff,omitempty"`
	Validation *validate.Result         `json:"validation,omitempty"`
}

// HandleMessage processes one user chat message end to end.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", ErrPromptTooShort)
	}

	sess, err := e.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	intent, elements := e.detector.Detect(text, sess.Messages)
	e.logger.Info("message classified",
		"session_id", sessionID,
		"intent", intent.Intent,
		"confidence", intent.Confidence)

	currentVersion := 0
	if sess.Game != nil {
		currentVersion = sess.Game.Version
	}
	if err := e.recordMessage(ctx, sessionID, domain.RoleUser, text, &intent, &elements, currentVersion); err != nil {
		return nil, err
	}

	var res *Result
	switch {
	case intent.Intent == domain.IntentCreateGame:
		res, err = e.createGame(ctx, sess, text, intent, elements)
	case sess.HasGame() && convo.ContainsRebuildRequest(text):
		// Rebuild phrasing ("redesign", "from scratch") rarely matches the
		// intent vocabulary; it still belongs to the modification pipeline,
		// where the planner recognizes it.
		res, err = e.modifyGame(ctx, sess, text, intent, elements)
	case intent.Intent == domain.IntentAskQuestion:
		res, err = e.answerQuestion(ctx, sess, text, intent, elements)
	case intent.Intent == domain.IntentRequestHelp:
		res, err = e.helpReply(sess, intent, elements)
	default:
		res, err = e.modifyGame(ctx, sess, text, intent, elements)
	}
	if err != nil {
		return nil, err
	}

	replyVersion := currentVersion
	if res.Game != nil {
		replyVersion = res.Game.Version
	}
	if err := e.recordMessage(ctx, sessionID, domain.RoleAssistant, res.Reply, nil, nil, replyVersion); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) recordMessage(ctx context.Context, sessionID string, role domain.Role, text string, intent *domain.IntentResult, elements *domain.ElementSet, version int) error {
	msg := domain.ConversationMessage{
		ID:          "msg_" + uuid.NewString(),
		Role:        role,
		Text:        text,
		Timestamp:   time.Now().UTC(),
		Intent:      intent,
		Elements:    elements,
		GameVersion: version,
	}
	if err := e.repo.AppendMessage(ctx, sessionID, msg); err != nil {
		return err
	}

	ev := convlog.Event{
		SessionID:   sessionID,
		Role:        role,
		Text:        text,
		GameVersion: version,
	}
	if intent != nil {
		ev.Intent = intent.Intent
	}
	e.audit.Log(ev)
	return nil
}

// createGame generates a new game from a description.
func (e *Engine) createGame(ctx context.Context, sess *domain.Session, text string, intent domain.IntentResult, elements domain.ElementSet) (*Result, error) {
	if len(text) < minPromptChars {
		return nil, fmt.Errorf("%w: %d characters (minimum %d)", ErrPromptTooShort, len(text), minPromptChars)
	}
	if len(text) > maxPromptChars {
		return nil, fmt.Errorf("%w: %d characters (maximum %d)", ErrPromptTooLong, len(text), maxPromptChars)
	}

	release, err := e.repo.LockModification(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	gameType := DetectGameType(text)
	gameEngine := DetectEngine(text)
	tpl := e.templates.ByType(gameType)
	tplHTML, err := e.templates.Render(tpl.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("render starter template: %w", err)
	}

	spec := prompt.CreationSpec{
		Description:  text,
		Type:         gameType,
		Engine:       gameEngine,
		Features:     elements.Features,
		TemplateHTML: tplHTML,
	}
	p, err := e.composer.ComposeCreation(prompt.BuildContext(sess), spec)
	if err != nil {
		return nil, err
	}

	code, validation, explanation, err := e.generateValidated(ctx, sess.ID, func([]string) (string, error) {
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if code == "" {
		// Generation kept failing validation; ship the starter template so
		// the player still gets a working game.
		e.logger.Warn("creation attempts exhausted, falling back to starter template",
			"session_id", sess.ID, "template_id", tpl.ID)
		code = tplHTML
		v := e.validator.Validate(code)
		validation = &v
		explanation = ""
	}

	current := 0
	if sess.Game != nil {
		current = sess.Game.Version
	}
	game := &domain.GameState{
		GameID:     "game_" + uuid.NewString(),
		Code:       code,
		Type:       gameType,
		Engine:     gameEngine,
		Features:   ExtractFeatures(code),
		TemplateID: tpl.ID,
	}
	version := domain.GameVersion{
		Version:   current + 1,
		Code:      code,
		Summary:   fmt.Sprintf("Created a new %s game", gameType),
		CodeSize:  len(code),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := e.repo.AppendVersion(ctx, sess.ID, game, version); err != nil {
		return nil, err
	}
	game.Version = version.Version

	reply := explanation
	if reply == "" {
		reply = fmt.Sprintf("Created a new %s game! Try it out and tell me what to change.", gameType)
	}
	return &Result{
		Reply:      reply,
		Intent:     intent,
		Elements:   elements,
		Game:       game,
		Version:    &version,
		Validation: validation,
	}, nil
}

// modifyGame runs the full modification pipeline for an existing game.
func (e *Engine) modifyGame(ctx context.Context, sess *domain.Session, text string, intent domain.IntentResult, elements domain.ElementSet) (*Result, error) {
	if !sess.HasGame() {
		return nil, ErrNoActiveGame
	}

	release, err := e.repo.LockModification(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock; the snapshot from GetSession may be stale.
	game, err := e.repo.CurrentGameState(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if game == nil || game.Code == "" {
		return nil, ErrNoActiveGame
	}
	sess.Game = game

	modPlan := e.planner.Plan(plan.Input{
		Message:  text,
		Intent:   intent,
		Elements: elements,
		Features: game.Features,
	})
	e.logger.Info("modification planned",
		"session_id", sess.ID,
		"strategy", modPlan.Strategy,
		"complexity", modPlan.Complexity)

	pctx := prompt.BuildContext(sess)
	code, validation, explanation, err := e.generateValidated(ctx, sess.ID, func(fixIssues []string) (string, error) {
		return e.composer.ComposeModification(pctx, modPlan, text, fixIssues)
	})
	if err != nil {
		return nil, err
	}
	if code == "" {
		issues := ""
		if validation != nil {
			issues = strings.Join(validation.Issues(), "; ")
		}
		return nil, fmt.Errorf("%w after %d attempts: %s", ErrValidationFailed, e.maxRetries, issues)
	}

	diff := e.summarizer.Summarize(game.Code, code)

	next := *game
	next.Code = code
	next.Features = mergeFeatures(game.Features, ExtractFeatures(code))
	if modPlan.Strategy == domain.StrategyRebuild {
		next.Type = DetectGameType(text)
		next.Engine = DetectEngine(text)
	}

	version := domain.GameVersion{
		Version:   game.Version + 1,
		Code:      code,
		Summary:   diffSummary(diff, text),
		Diff:      &diff,
		CodeSize:  len(code),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := e.repo.AppendVersion(ctx, sess.ID, &next, version); err != nil {
		return nil, err
	}
	next.Version = version.Version

	reply := explanation
	if reply == "" {
		reply = version.Summary
	}
	return &Result{
		Reply:      reply,
		Intent:     intent,
		Elements:   elements,
		Plan:       &modPlan,
		Game:       &next,
		Version:    &version,
		Diff:       &diff,
		Validation: validation,
	}, nil
}

// generateValidated runs the bounded generate-validate loop. compose
// receives the issues accumulated from prior failed attempts. Returns an
// empty code string when every attempt failed validation. When no attempt
// even reached validation, the last provider error comes back instead. A
// composition error aborts immediately; no retry can help there.
func (e *Engine) generateValidated(ctx context.Context, sessionID string, compose func(fixIssues []string) (string, error)) (string, *validate.Result, string, error) {
	var (
		fixIssues  []string
		validation *validate.Result
		lastErr    error
	)
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		p, err := compose(fixIssues)
		if err != nil {
			return "", validation, "", err
		}

		raw, err := e.client.Complete(ctx, p)
		if err != nil {
			lastErr = err
			e.logger.Warn("provider call failed",
				"session_id", sessionID, "attempt", attempt, "error", err)
			continue
		}

		code := ai.ExtractHTML(raw)
		res := e.validator.Validate(code)
		validation = &res
		if res.Passed {
			return code, validation, ai.ExtractExplanation(raw), nil
		}

		fixIssues = append(fixIssues, res.Issues()...)
		e.logger.Warn("generated code failed validation",
			"session_id", sessionID,
			"attempt", attempt,
			"errors", len(res.Errors),
			"security_issues", len(res.SecurityIssues))
	}
	if validation == nil && lastErr != nil {
		return "", nil, "", fmt.Errorf("provider failed after %d attempts: %w", e.maxRetries, lastErr)
	}
	return "", validation, "", nil
}

// answerQuestion produces a conversational reply without touching the game.
func (e *Engine) answerQuestion(ctx context.Context, sess *domain.Session, text string, intent domain.IntentResult, elements domain.ElementSet) (*Result, error) {
	var b strings.Builder
	b.WriteString("You are a friendly game development assistant for a browser game builder.\n\n")
	if sess.Game != nil {
		fmt.Fprintf(&b, "The player's current game: %s\n", sess.Game.Summary())
		if len(sess.Game.Features) > 0 {
			fmt.Fprintf(&b, "Its features: %s\n", strings.Join(sess.Game.Features, ", "))
		}
		b.WriteString("\n")
	}
	for _, msg := range sess.RecentMessages(prompt.HistoryWindow) {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Text)
	}
	fmt.Fprintf(&b, "\nAnswer the player's question in a short paragraph. Do not output code.\nQuestion: %s\n", text)

	raw, err := e.client.Complete(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}
	return &Result{
		Reply:    strings.TrimSpace(raw),
		Intent:   intent,
		Elements: elements,
		Game:     sess.Game,
	}, nil
}

// helpReply answers vague or unmatched messages with concrete suggestions.
// No provider call; the suggestions are canned.
func (e *Engine) helpReply(sess *domain.Session, intent domain.IntentResult, elements domain.ElementSet) (*Result, error) {
	var b strings.Builder
	b.WriteString("Here are some things you can try:\n")
	for _, s := range Suggestions(sess.Game) {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return &Result{
		Reply:    b.String(),
		Intent:   intent,
		Elements: elements,
		Game:     sess.Game,
	}, nil
}

// Suggestions returns prompt ideas appropriate to the session's state.
func Suggestions(game *domain.GameState) []string {
	if game == nil {
		return []string{
			"Make a platformer where you collect coins",
			"Create a space shooter with waves of enemies",
			"Build a sliding puzzle game",
		}
	}
	return []string{
		"Change the player color to red",
		"Make the player jump higher",
		"Add coins to collect for points",
		"Add sound effects",
		"Fix anything that feels broken",
	}
}

// Rollback restores a prior version by appending a new one with its code.
func (e *Engine) Rollback(ctx context.Context, sessionID string, targetVersion int) (*domain.GameState, error) {
	release, err := e.repo.LockModification(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	game, err := e.repo.Rollback(ctx, sessionID, targetVersion)
	if err != nil {
		return nil, err
	}
	e.audit.Log(convlog.Event{
		SessionID:   sessionID,
		Role:        domain.RoleAssistant,
		Text:        fmt.Sprintf("Rolled back to version %d", targetVersion),
		GameVersion: game.Version,
	})
	return game, nil
}

func diffSummary(diff domain.DiffReport, fallback string) string {
	if len(diff.Statements) > 0 {
		return strings.Join(diff.Statements, "; ")
	}
	if len(fallback) > 60 {
		fallback = fallback[:60]
	}
	return "Applied: " + fallback
}
