// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package game

// =============================================================================
// MODES (ZONES)
// =============================================================================

// Mode is a named behavioral configuration for the remote model. Modes are
// static reference data and are never persisted.
type Mode struct {
	ID    string
	Title string
	Icon  string

	// LevelCap is the ceiling above which XP awards are suppressed.
	// A cap of 0 disables suppression entirely; the library mode relies
	// on its prompt never emitting settlement commands instead.
	LevelCap int

	Desc   string
	Prompt string
}

// Mode identifiers.
const (
	ModeNovice      = "zone_novice"
	ModeBattlefield = "zone_dungeon"
	ModeTower       = "zone_tower"
	ModeLibrary     = "mode_qa"
)

// settleContract is appended to every zone prompt so the model knows the
// settlement wire format it must emit at the end of a graded reply.
const settleContract = "\n**Settlement (IMPORTANT):** when a challenge is graded, end your reply with a JSON block:\n```json\n{ \"cmd\": \"settle\", \"xp\": <earned>, \"msg\": \"...\" }\n```\nPlain Q&A gets no settlement block."

var modes = []Mode{
	{
		ID:       ModeNovice,
		Title:    "Novice Village",
		Icon:     "fa-leaf",
		LevelCap: 5,
		Desc:     "Lv.1-5 fundamentals. No XP past Lv.5.",
		Prompt: "# Novice Village Guide\n" +
			"You mentor level 1-5 beginners on language fundamentals (collections, generics, async, OOP).\n" +
			"Rules:\n" +
			"1. Be warm and encouraging; keep questions simple.\n" +
			"2. Success awards 10 xp, failure awards 0 xp with a short correction." +
			settleContract,
	},
	{
		ID:       ModeBattlefield,
		Title:    "Code Battlefield",
		Icon:     "fa-dragon",
		LevelCap: 15,
		Desc:     "Lv.5-15 hands-on coding drills. No XP past Lv.15.",
		Prompt: "# Battlefield Commander\n" +
			"You run level 5-15 trials: concrete coding tasks (web APIs, ORMs, caching).\n" +
			"Rules:\n" +
			"1. Stern drill-instructor tone; review code quality hard.\n" +
			"2. Clean solutions award 50 xp, buggy ones award 0 xp and a rewrite order." +
			settleContract,
	},
	{
		ID:       ModeTower,
		Title:    "Architect Tower",
		Icon:     "fa-dungeon",
		LevelCap: 999,
		Desc:     "Lv.15+ endless system-design trials.",
		Prompt: "# Tower Guardian\n" +
			"You face future architects (level 15+) with brutal non-functional requirements.\n" +
			"Rules:\n" +
			"1. A flawless design awards 200 xp and may grant a named skill via the \"skill\" field.\n" +
			"2. A flawed design awards 0 xp and names the fatal defect." +
			settleContract,
	},
	{
		ID:       ModeLibrary,
		Title:    "Library",
		Icon:     "fa-book",
		LevelCap: 0,
		Desc:     "Pure reference lookup. No XP here.",
		Prompt:   "You are a technical encyclopedia. Answer precisely. This mode performs no XP settlement.",
	},
}

// Modes returns the static mode list.
func Modes() []Mode {
	return modes
}

// ModeByID looks up a mode by identifier.
func ModeByID(id string) (Mode, bool) {
	for _, m := range modes {
		if m.ID == id {
			return m, true
		}
	}
	return Mode{}, false
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

// KnowledgeBase is the static context block injected into system prompts so
// the model grades against a consistent curriculum.
type KnowledgeBase struct {
	Roadmap    map[string][]string `json:"roadmap"`
	Principles []string            `json:"principles"`
	Scenarios  []Scenario          `json:"scenarios"`
}

// Scenario is one graded challenge template.
type Scenario struct {
	Title string `json:"title"`
	Pain  string `json:"pain"`
	Focus string `json:"focus"`
}

// Knowledge returns the static curriculum.
func Knowledge() KnowledgeBase {
	return KnowledgeBase{
		Roadmap: map[string][]string{
			"junior":    {"Core language (generics, delegates, LINQ, async)", "Web API basics (middleware, DI)", "Relational modeling and migrations"},
			"senior":    {"Design patterns (factory, strategy, observer, repository)", "Performance (spans, memory, indexing)", "Line-of-business workflows (RBAC, approval chains)"},
			"architect": {"Domain-driven design", "Microservices (gRPC, gateways, service discovery)", "Cloud native (containers, orchestration)", "Distributed systems (messaging, sagas, outbox)"},
		},
		Principles: []string{
			"High cohesion, low coupling",
			"Premature optimization is the root of all evil",
			"Dependency inversion",
			"Stateless by default",
			"Design for failure",
		},
		Scenarios: []Scenario{
			{Title: "Purchase receiving", Pain: "tedious mapping layers", Focus: "mapping, reflection"},
			{Title: "Month-end close", Pain: "out-of-memory on bulk data", Focus: "batching, streaming enumeration, background jobs"},
			{Title: "Omnichannel orders", Pain: "oversell, distributed consistency", Focus: "atomic scripts, event sourcing, compensation"},
		},
	}
}
