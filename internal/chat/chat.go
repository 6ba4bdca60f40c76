// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives a full conversation turn: local commands, message
// assembly, streaming, and post-stream settlement against the player state.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jeranaias/dojoquest/internal/cloud"
	"github.com/jeranaias/dojoquest/internal/extract"
	"github.com/jeranaias/dojoquest/internal/game"
)

// =============================================================================
// TYPES
// =============================================================================

// Phase is the turn lifecycle. Transitions: Idle -> Streaming -> Completing
// -> Idle, with Streaming -> Idle on error or abort.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStreaming
	PhaseCompleting
)

func (p Phase) String() string {
	switch p {
	case PhaseStreaming:
		return "streaming"
	case PhaseCompleting:
		return "completing"
	default:
		return "idle"
	}
}

// UI receives display events. Implementations must tolerate calls from the
// goroutine running Send.
type UI interface {
	// StreamDelta delivers one incremental chunk of the in-flight reply.
	StreamDelta(text string)
	// AgentMessage delivers the final reply prose, settlement block removed.
	AgentMessage(text string)
	// SystemMessage delivers game notices (XP awards, mode changes).
	SystemMessage(text string)
	// ErrorMessage delivers a user-facing failure description.
	ErrorMessage(text string)
}

// Streamer is the completion backend. *cloud.Client satisfies it.
type Streamer interface {
	StreamChat(messages []cloud.ChatMessage, onChunk func(string), onComplete func(), onError func(error))
	Abort()
}

// ErrBusy is returned when Send is called while a turn is in flight.
var ErrBusy = errors.New("a request is already in flight")

const (
	// historyWindow is how many prior user/agent entries accompany a turn.
	historyWindow = 5
	// failureLimit is the consecutive-failure count that triggers the
	// forced study detour.
	failureLimit = 3
)

// Orchestrator runs chat turns against a single player state.
type Orchestrator struct {
	state *game.State
	llm   Streamer
	ui    UI

	mu    sync.Mutex
	phase Phase
}

// New wires an orchestrator. All three collaborators are required.
func New(state *game.State, llm Streamer, ui UI) *Orchestrator {
	return &Orchestrator{state: state, llm: llm, ui: ui}
}

// Phase reports the current turn phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// Abort cancels the in-flight stream, if any. The stream ends silently;
// no completion or error callbacks fire for the aborted turn.
func (o *Orchestrator) Abort() {
	o.llm.Abort()
}

// =============================================================================
// SEND
// =============================================================================

// Send runs one full turn and blocks until it settles. Slash-prefixed input
// is handled locally without touching the network.
func (o *Orchestrator) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		return o.runCommand(text)
	}

	o.mu.Lock()
	if o.phase != PhaseIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.phase = PhaseStreaming
	o.mu.Unlock()
	defer o.setPhase(PhaseIdle)

	if err := o.state.AddChatMessage(game.RoleUser, text); err != nil {
		return fmt.Errorf("persist user message: %w", err)
	}

	msgs, err := o.buildMessages(text)
	if err != nil {
		return err
	}

	var (
		buf       strings.Builder
		completed bool
		streamErr error
	)
	o.llm.StreamChat(msgs,
		func(chunk string) {
			buf.WriteString(chunk)
			o.ui.StreamDelta(chunk)
		},
		func() { completed = true },
		func(err error) { streamErr = err },
	)

	if streamErr != nil {
		o.ui.ErrorMessage(describeError(streamErr))
		return streamErr
	}
	if !completed {
		// Aborted or superseded; nothing to settle.
		return nil
	}

	o.setPhase(PhaseCompleting)
	return o.settle(buf.String())
}

// settle splits the full reply into prose and an optional command, persists
// the prose, and applies any game effects.
func (o *Orchestrator) settle(full string) error {
	clean, cmd := extract.Parse(full)

	o.ui.AgentMessage(clean)
	if err := o.state.AddChatMessage(game.RoleAgent, clean); err != nil {
		return fmt.Errorf("persist reply: %w", err)
	}

	if cmd == nil || cmd.Cmd != extract.CmdSettle {
		return nil
	}
	if cmd.XP > 0 {
		return o.settleSuccess(cmd)
	}
	return o.settleFailure(cmd)
}

func (o *Orchestrator) settleSuccess(cmd *extract.Command) error {
	res, err := o.state.AddXp(cmd.XP)
	if err != nil {
		return fmt.Errorf("award xp: %w", err)
	}
	if err := o.state.ResetFailures(); err != nil {
		return err
	}
	if cmd.Skill != "" {
		if err := o.state.UnlockSkill(cmd.Skill); err != nil {
			return err
		}
	}

	p := o.state.Profile()
	var notice strings.Builder
	if res.Awarded > 0 {
		fmt.Fprintf(&notice, "+%d XP", res.Awarded)
		if res.LeveledUp {
			fmt.Fprintf(&notice, " - LEVEL UP! You are now Lv.%d %s", p.Level, p.Title)
		}
	}
	if res.Note != "" {
		if notice.Len() > 0 {
			notice.WriteString("\n")
		}
		notice.WriteString(res.Note)
	}
	if cmd.Skill != "" {
		if notice.Len() > 0 {
			notice.WriteString("\n")
		}
		fmt.Fprintf(&notice, "Skill unlocked: %s", cmd.Skill)
	}
	if notice.Len() > 0 {
		o.ui.SystemMessage(notice.String())
	}
	return o.logSettlement(cmd)
}

func (o *Orchestrator) settleFailure(cmd *extract.Command) error {
	count, err := o.state.RecordFailure()
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	if count >= failureLimit {
		if err := o.state.SetMode(game.ModeLibrary); err != nil {
			return err
		}
		if err := o.state.ResetFailures(); err != nil {
			return err
		}
		o.ui.SystemMessage(fmt.Sprintf(
			"%d failures in a row. You have been sent to the Library to study the fundamentals. Come back when you are ready.",
			failureLimit))
	} else {
		o.ui.SystemMessage(fmt.Sprintf("No XP this time (%d/%d strikes).", count, failureLimit))
	}
	return o.logSettlement(cmd)
}

// logSettlement persists the grader's verdict as a system entry so the
// transcript records why XP changed.
func (o *Orchestrator) logSettlement(cmd *extract.Command) error {
	msg := cmd.Msg
	if msg == "" {
		msg = fmt.Sprintf("settled: %d xp", cmd.XP)
	}
	return o.state.AddChatMessage(game.RoleSystem, msg)
}

// =============================================================================
// MESSAGE ASSEMBLY
// =============================================================================

// turnContext is the structured game snapshot handed to the model alongside
// the mode prompt.
type turnContext struct {
	Knowledge game.KnowledgeBase `json:"knowledge"`
	Player    playerSnapshot     `json:"player"`
}

type playerSnapshot struct {
	Level          int      `json:"level"`
	Title          string   `json:"title"`
	XP             int      `json:"xp"`
	NextLevelXP    int      `json:"nextLevelXp"`
	UnlockedSkills []string `json:"unlockedSkills"`
}

func (o *Orchestrator) buildMessages(userText string) ([]cloud.ChatMessage, error) {
	mode, ok := game.ModeByID(o.state.Mode())
	if !ok {
		mode, _ = game.ModeByID(game.ModeNovice)
	}

	p := o.state.Profile()
	ctx, err := json.Marshal(turnContext{
		Knowledge: game.Knowledge(),
		Player: playerSnapshot{
			Level:          p.Level,
			Title:          p.Title,
			XP:             p.XP,
			NextLevelXP:    p.NextLevelXP,
			UnlockedSkills: p.UnlockedSkills,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}

	msgs := []cloud.ChatMessage{
		{Role: "system", Content: mode.Prompt},
		{Role: "system", Content: "Game state:\n" + string(ctx)},
	}
	msgs = append(msgs, o.historyMessages()...)
	msgs = append(msgs, cloud.ChatMessage{Role: "user", Content: userText})
	return msgs, nil
}

// historyMessages returns the last few user/agent entries of the current
// session in wire form. System entries are transcript-only and excluded.
func (o *Orchestrator) historyMessages() []cloud.ChatMessage {
	var turns []cloud.ChatMessage
	for _, e := range o.state.ChatHistory() {
		switch e.Role {
		case game.RoleUser:
			turns = append(turns, cloud.ChatMessage{Role: "user", Content: e.Content})
		case game.RoleAgent:
			turns = append(turns, cloud.ChatMessage{Role: "assistant", Content: e.Content})
		}
	}
	// The current user message is already persisted; drop it from history
	// so it appears exactly once, as the trailing message.
	if len(turns) > 0 && turns[len(turns)-1].Role == "user" {
		turns = turns[:len(turns)-1]
	}
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}
	return turns
}

// =============================================================================
// LOCAL COMMANDS
// =============================================================================

func (o *Orchestrator) runCommand(text string) error {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/status":
		o.ui.SystemMessage(o.statusLine())
	case "/clear":
		if err := o.state.ClearHistory(); err != nil {
			return err
		}
		o.ui.SystemMessage("History cleared.")
	case "/modes":
		var b strings.Builder
		for _, m := range game.Modes() {
			fmt.Fprintf(&b, "%s  %s - %s\n", m.ID, m.Title, m.Desc)
		}
		o.ui.SystemMessage(strings.TrimRight(b.String(), "\n"))
	case "/mode":
		if len(fields) < 2 {
			o.ui.SystemMessage("Usage: /mode <id> (see /modes)")
			return nil
		}
		mode, ok := game.ModeByID(fields[1])
		if !ok {
			o.ui.SystemMessage(fmt.Sprintf("Unknown mode %q (see /modes)", fields[1]))
			return nil
		}
		if err := o.state.SetMode(mode.ID); err != nil {
			return err
		}
		o.ui.SystemMessage(fmt.Sprintf("Entered %s.", mode.Title))
	default:
		o.ui.SystemMessage(fmt.Sprintf("Unknown command %q. Available: /status /clear /mode /modes", fields[0]))
	}
	return nil
}

func (o *Orchestrator) statusLine() string {
	st := o.state.Status()
	p := st.Profile
	return fmt.Sprintf("%s - Lv.%d %s | XP %d/%d | Mode: %s | Skills: %d | Strikes: %d/%d",
		p.Username, p.Level, p.Title, p.XP, p.NextLevelXP, st.ModeName,
		len(p.UnlockedSkills), st.Failures, failureLimit)
}

// describeError maps transport failures onto actionable user text.
func describeError(err error) string {
	switch {
	case errors.Is(err, cloud.ErrNoAPIKey), errors.Is(err, cloud.ErrInvalidAPIKey):
		return err.Error()
	default:
		return "The stream failed: " + err.Error()
	}
}
