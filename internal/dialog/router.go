// ABOUTME: Top-level turn router for the dialogue engine
// ABOUTME: Runs an explicit ordered rule list; the first rule that handles the turn wins

package dialog

import (
	"log/slog"
	"strings"

	"github.com/charlabot/charla/internal/kb"
	"github.com/charlabot/charla/internal/nlp"
	"github.com/charlabot/charla/internal/retrieval"
)

// Result is the outcome of one processed turn. Category may be empty for
// menu/command turns. Escalation is a normal outcome, not an error: the router
// never fails.
type Result struct {
	Reply         string
	Category      nlp.Category
	Confidence    float64
	LowConfidence bool
	NeedsAgent    bool
	End           bool
	CommandMenu   bool
}

// Config bounds the escalation policy.
type Config struct {
	// LowConfidenceThreshold marks a classification as uncertain below it.
	LowConfidenceThreshold float64
	// MaxLowConfStreak escalates after this many consecutive uncertain turns.
	MaxLowConfStreak int
	// MaxUnresolvedStreak escalates after this many generic replies in a row.
	MaxUnresolvedStreak int
	// MisunderstandLimit escalates after this many resolver misses.
	MisunderstandLimit int
	// SemanticThreshold is the minimum blended score for the fallback tier.
	SemanticThreshold float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		LowConfidenceThreshold: 0.45,
		MaxLowConfStreak:       2,
		MaxUnresolvedStreak:    2,
		MisunderstandLimit:     2,
		SemanticThreshold:      retrieval.DefaultThreshold,
	}
}

// AnswerResolver is the semantic fallback tier the router consults after the
// exact FAQ tier misses.
type AnswerResolver interface {
	Best(query string, threshold float64) (retrieval.Result, bool)
}

// Router processes one turn at a time against a ConversationState. It performs
// no I/O; persistence and transport live with the caller.
type Router struct {
	resolver AnswerResolver
	cfg      Config
	logger   *slog.Logger
}

// NewRouter builds a Router around the injected semantic resolver.
func NewRouter(resolver AnswerResolver, cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		resolver: resolver,
		cfg:      cfg,
		logger:   logger.With("component", "dialog"),
	}
}

var resetCommands = map[string]bool{"reiniciar": true, "reset": true, "/reset": true}

var agentKeywords = []string{"agente", "humano", "representante", "asesor", "soporte humano", "hablar con alguien"}

var backToMenuPhrases = []string{"no es eso", "otra cosa", "me equivoqué", "me equivoque"}

var thanksWords = []string{
	"gracias", "muchas gracias", "mil gracias", "gracias!", "gracias.", "gracias!!",
	"thanks", "thank you",
}

func isThanks(text string) bool {
	t := nlp.Normalize(text)
	for _, w := range thanksWords {
		if t == w || strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// turn carries the per-turn working set shared by the rule steps.
type turn struct {
	state *State
	raw   string // user text as received
	text  string // normalized user text

	// Filled by the classification step.
	category   nlp.Category
	confidence float64
	lowConf    bool
}

// step is one rule of the turn pipeline. done=true means the rule produced the
// turn's result and the remaining rules are skipped.
type step struct {
	name string
	fn   func(*turn) (res Result, done bool)
}

// RouteMessage processes a single user message and mutates state in place.
// Rule precedence is the order of the steps slice.
func (r *Router) RouteMessage(state *State, userText string) Result {
	t := &turn{state: state, raw: userText, text: nlp.Normalize(userText)}

	steps := []step{
		{"reset_command", r.stepResetCommand},
		{"menu_request", r.stepMenuRequest},
		{"gratitude", r.stepGratitude},
		{"menu_stage", r.stepMenuStage},
		{"agent_request", r.stepAgentRequest},
		{"classify", r.stepClassify},
		{"low_conf_streak", r.stepLowConfStreak},
		{"misunderstood", r.stepMisunderstood},
		{"back_to_menu", r.stepBackToMenu},
		{"sticky_category", r.stepStickyCategory},
		{"sales_flow", r.stepSalesFlow},
		{"support_flow", r.stepSupportFlow},
		{"resolve_answer", r.stepResolveAnswer},
	}

	for _, s := range steps {
		if res, done := s.fn(t); done {
			r.logger.Debug("turn handled",
				"step", s.name,
				"category", string(res.Category),
				"confidence", res.Confidence,
				"needs_agent", res.NeedsAgent)
			return res
		}
	}

	// Unreachable: resolve_answer always handles the turn.
	return Result{Reply: defaultReplyFor(t.category), Category: t.category}
}

// goToMenu resets the dialogue position (but not the meta slots) and re-shows
// the menu.
func goToMenu(state *State) Result {
	state.Stage = StageMenu
	state.SelectedCategory = ""
	state.LastCategory = ""
	state.LowConfStreak = 0
	state.UnresolvedStreak = 0
	return Result{Reply: MainMenu, Confidence: 1.0, CommandMenu: true}
}

func (r *Router) stepResetCommand(t *turn) (Result, bool) {
	if !resetCommands[t.text] {
		return Result{}, false
	}
	t.state.Reset()
	r.logger.Info("conversation reset by user")
	return goToMenu(t.state), true
}

func (r *Router) stepMenuRequest(t *turn) (Result, bool) {
	if !nlp.IsMenuRequest(t.raw) {
		return Result{}, false
	}
	return goToMenu(t.state), true
}

func (r *Router) stepGratitude(t *turn) (Result, bool) {
	if !isThanks(t.raw) {
		return Result{}, false
	}
	t.state.AddUser(t.raw)
	t.state.AddBot(replyThanks)
	return Result{
		Reply:      replyThanks,
		Category:   t.state.LastCategory,
		Confidence: 1.0,
		End:        true,
	}, true
}

// menuChoice maps raw input to a category by digit or by name.
func menuChoice(text string) nlp.Category {
	switch nlp.Normalize(text) {
	case "1", "ventas":
		return nlp.CategoryVentas
	case "2", "soporte":
		return nlp.CategorySoporte
	case "3", "informacion", "información", "info":
		return nlp.CategoryGeneral
	}
	return ""
}

func (r *Router) stepMenuStage(t *turn) (Result, bool) {
	if t.state.Stage != StageMenu {
		return Result{}, false
	}

	if nlp.IsGreeting(t.raw) || nlp.SeemsPersonalData(t.raw) {
		return Result{Reply: "¡Hola! 😊 " + MainMenu, Confidence: 1.0, CommandMenu: true}, true
	}

	chosen := menuChoice(t.raw)
	if chosen == "" {
		return Result{Reply: MainMenu, Confidence: 1.0, CommandMenu: true}, true
	}

	t.state.Stage = StageChat
	t.state.SelectedCategory = chosen
	t.state.LastCategory = chosen

	entry := replyGeneralEntry
	switch chosen {
	case nlp.CategoryVentas:
		entry = replySalesEntry
	case nlp.CategorySoporte:
		entry = replySupportEntry
	}
	return Result{Reply: entry, Category: chosen, Confidence: 1.0}, true
}

func (r *Router) stepAgentRequest(t *turn) (Result, bool) {
	if !containsAny(t.text, agentKeywords) {
		return Result{}, false
	}
	reply := replyAgentRequested
	t.state.AddUser(t.raw)
	t.state.AddBot(reply)
	return Result{
		Reply:      reply,
		Category:   t.state.LastCategory,
		Confidence: 1.0,
		NeedsAgent: true,
	}, true
}

// stepClassify fills the turn's classification fields; it never consumes the
// turn itself.
func (r *Router) stepClassify(t *turn) (Result, bool) {
	hint := t.state.SelectedCategory
	if hint == "" {
		hint = t.state.LastCategory
	}
	t.category, t.confidence, _ = nlp.Classify(t.raw, hint)
	t.lowConf = t.confidence < r.cfg.LowConfidenceThreshold
	return Result{}, false
}

func (r *Router) stepLowConfStreak(t *turn) (Result, bool) {
	if t.lowConf {
		t.state.LowConfStreak++
	} else {
		t.state.LowConfStreak = 0
	}
	if t.state.LowConfStreak < r.cfg.MaxLowConfStreak {
		return Result{}, false
	}
	t.state.AddUser(t.raw)
	t.state.AddBot(replyLowConfStreak)
	return Result{
		Reply:         replyLowConfStreak,
		Category:      t.category,
		Confidence:    t.confidence,
		LowConfidence: true,
		NeedsAgent:    true,
	}, true
}

func (r *Router) stepMisunderstood(t *turn) (Result, bool) {
	if !t.lowConf {
		t.state.clearMisunderstand()
		return Result{}, false
	}
	if !t.state.bumpMisunderstand(r.cfg.MisunderstandLimit) {
		return Result{}, false
	}
	t.state.AddUser(t.raw)
	t.state.AddBot(replyMisunderstood)
	t.state.LastCategory = t.category
	return Result{
		Reply:         replyMisunderstood,
		Category:      t.category,
		Confidence:    t.confidence,
		LowConfidence: true,
		NeedsAgent:    true,
	}, true
}

func (r *Router) stepBackToMenu(t *turn) (Result, bool) {
	if !containsAny(t.text, backToMenuPhrases) {
		return Result{}, false
	}
	return goToMenu(t.state), true
}

// stepStickyCategory coerces a low-confidence reclassification back to the
// category the user chose explicitly. Never consumes the turn.
func (r *Router) stepStickyCategory(t *turn) (Result, bool) {
	if t.state.SelectedCategory != "" && t.category != t.state.SelectedCategory && t.lowConf {
		t.category = t.state.SelectedCategory
	}
	return Result{}, false
}

func (r *Router) stepSalesFlow(t *turn) (Result, bool) {
	if t.category != nlp.CategoryVentas && t.state.SelectedCategory != nlp.CategoryVentas {
		return Result{}, false
	}
	res := salesFlow(t.state, t.raw)
	t.state.AddUser(t.raw)
	t.state.AddBot(res.Reply)
	t.state.LastCategory = nlp.CategoryVentas
	t.state.SelectedCategory = nlp.CategoryVentas
	return res, true
}

func (r *Router) stepSupportFlow(t *turn) (Result, bool) {
	if t.category != nlp.CategorySoporte {
		return Result{}, false
	}
	res, handled := r.supportFlow(t.state, t.raw, t.confidence, r.cfg.MaxUnresolvedStreak)
	if !handled {
		return Result{}, false
	}
	t.state.AddUser(t.raw)
	t.state.AddBot(res.Reply)
	t.state.LastCategory = nlp.CategorySoporte
	return res, true
}

// stepResolveAnswer is the terminal rule: FAQ tier, semantic tier, then the
// misunderstanding/unresolved escalation policy around the generic reply.
func (r *Router) stepResolveAnswer(t *turn) (Result, bool) {
	state := t.state
	category := t.category

	finish := func(res Result) (Result, bool) {
		state.AddUser(t.raw)
		state.AddBot(res.Reply)
		state.LastCategory = res.Category
		return res, true
	}

	if answer, ok := kb.SearchFAQ(category, t.raw); ok {
		state.UnresolvedStreak = 0
		state.clearMisunderstand()
		return finish(Result{Reply: answer, Category: category, Confidence: t.confidence})
	}

	if res, ok := r.resolver.Best(t.raw, r.cfg.SemanticThreshold); ok {
		if !category.Valid() {
			category = res.QA.Category
		}
		state.UnresolvedStreak = 0
		state.clearMisunderstand()
		return finish(Result{Reply: res.QA.Answer, Category: category, Confidence: t.confidence})
	}

	if state.bumpMisunderstand(r.cfg.MisunderstandLimit) {
		return finish(Result{
			Reply:         replyMisunderstood,
			Category:      category,
			Confidence:    0.0,
			LowConfidence: true,
			NeedsAgent:    true,
		})
	}

	// Generic fallback. The streak only grows while the category is stable;
	// a category switch restarts it. Success paths above reset it instead —
	// keep the asymmetry.
	if state.LastCategory == category {
		state.UnresolvedStreak++
	} else {
		state.UnresolvedStreak = 0
	}
	if state.UnresolvedStreak >= r.cfg.MaxUnresolvedStreak {
		return finish(Result{
			Reply:      replyUnresolved,
			Category:   category,
			Confidence: 0.0,
			NeedsAgent: true,
		})
	}

	return finish(Result{Reply: defaultReplyFor(category), Category: category, Confidence: t.confidence})
}
