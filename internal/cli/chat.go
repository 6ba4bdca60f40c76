// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the dojoquest CLI.
//
// Handles the "dojoquest chat" command (also the default command): a REPL
// that streams replies token by token, then re-renders the final prose as
// terminal markdown once any settlement command has been stripped.
//
// Interactive commands (during chat):
//   /status        Show player progression
//   /clear         Clear session history
//   /mode, /modes  Switch or list game zones
//   /key VALUE     Save the API key on the player profile
//   /new           Start a fresh session
//   /help          Show available commands
//   /quit, /q      Exit chat
//   Ctrl+C         Cancel the current generation
//   Ctrl+D         Exit chat
package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/dojoquest/internal/chat"
	"github.com/jeranaias/dojoquest/internal/cloud"
	"github.com/jeranaias/dojoquest/internal/config"
	"github.com/jeranaias/dojoquest/internal/game"
	"github.com/jeranaias/dojoquest/internal/render"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.loadHistory()
	return c
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation on arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

func (c *ChatCLI) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.saveHistory()
	c.line.Close()
}

// =============================================================================
// TERMINAL UI
// =============================================================================

// terminalUI displays chat events: deltas stream raw as they arrive, and
// the final reply is re-rendered as terminal markdown once the settlement
// block has been stripped, mirroring the web client's two-phase display.
type terminalUI struct {
	renderer *render.TerminalRenderer
	quiet    bool
}

func newTerminalUI(quiet bool) *terminalUI {
	return &terminalUI{
		renderer: render.NewTerminalRenderer(),
		quiet:    quiet,
	}
}

func (u *terminalUI) StreamDelta(text string) {
	fmt.Print(dimStyle.Render(text))
}

func (u *terminalUI) AgentMessage(text string) {
	fmt.Println()
	if u.quiet {
		fmt.Println(text)
		return
	}
	fmt.Print(u.renderer.Render(text))
}

func (u *terminalUI) SystemMessage(text string) {
	fmt.Println(systemStyle.Render("» " + text))
}

func (u *terminalUI) ErrorMessage(text string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("[Error]")+" "+text)
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive chat session.
func HandleChat(args Args) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	model := e.cfg.API.Model
	if args.Model != "" {
		model = args.Model
	}

	// The profile key wins so `/key` takes effect without touching config.
	keyFunc := func() string {
		if k := e.state.APIKey(); k != "" {
			return k
		}
		return e.cfg.API.Key
	}

	client := cloud.NewClient(keyFunc,
		cloud.WithBaseURL(e.cfg.API.URL),
		cloud.WithModel(model),
		cloud.WithTemperature(e.cfg.API.Temperature),
	)

	ui := newTerminalUI(args.Quiet)
	orch := chat.New(e.state, client, ui)

	if !args.Quiet {
		printWelcome(e.state)
	}

	input := NewChatCLI()
	defer input.Close()

	// First Ctrl+C cancels the in-flight generation; at the prompt, liner
	// reports it as ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			orch.Abort()
		}
	}()

	for {
		line, err := input.ReadInput(promptStyle.Render("dojo> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed terminal.
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if done, handled := handleLocalCommand(e, ui, line); handled {
			if done {
				return nil
			}
			continue
		}

		if err := orch.Send(line); err != nil && !shownByUI(err) {
			ui.ErrorMessage(err.Error())
		}
	}
}

// handleLocalCommand intercepts the commands owned by the REPL itself.
// Everything else, including /status and /mode, flows to the orchestrator.
func handleLocalCommand(e *env, ui *terminalUI, line string) (done, handled bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q", "exit", "quit":
		return true, true

	case "/help", "/h":
		fmt.Println(dimStyle.Render(
			"Commands: /status /clear /mode <id> /modes /key <value> /new /help /quit"))
		return false, true

	case "/key":
		if len(fields) < 2 {
			ui.ErrorMessage("usage: /key <api-key>")
			return false, true
		}
		if err := e.state.SetAPIKey(fields[1]); err != nil {
			ui.ErrorMessage("could not save key: " + err.Error())
			return false, true
		}
		ui.SystemMessage("API key saved.")
		return false, true

	case "/new":
		if err := e.state.StartNewSession(); err != nil {
			ui.ErrorMessage("could not start session: " + err.Error())
			return false, true
		}
		ui.SystemMessage("Started a new session.")
		return false, true
	}
	return false, false
}

// shownByUI reports whether the orchestrator already surfaced this error
// through the UI, so the REPL does not print it twice.
func shownByUI(err error) bool {
	if errors.Is(err, cloud.ErrNoAPIKey) || errors.Is(err, cloud.ErrInvalidAPIKey) {
		return true
	}
	var statusErr *cloud.StatusError
	var transportErr *cloud.TransportError
	return errors.As(err, &statusErr) || errors.As(err, &transportErr)
}

// printWelcome shows the player where they are and how they are doing.
func printWelcome(state *game.State) {
	p := state.Profile()
	modeTitle := p.CurrentMode
	if m, ok := game.ModeByID(p.CurrentMode); ok {
		modeTitle = m.Title
	}

	fmt.Println(titleStyle.Render("DojoQuest"))
	fmt.Printf("%s %s\n",
		labelStyle.Render("Player"),
		valueStyle.Render(fmt.Sprintf("%s - Lv.%d %s", p.Username, p.Level, p.Title)))
	fmt.Printf("%s %s %s\n",
		labelStyle.Render("XP"),
		xpBar(p.XP, p.NextLevelXP, 20),
		valueStyle.Render(fmt.Sprintf("%d/%d", p.XP, p.NextLevelXP)))
	fmt.Printf("%s %s\n",
		labelStyle.Render("Zone"),
		valueStyle.Render(modeTitle))
	fmt.Println(dimStyle.Render("Type /help for commands, /quit to leave."))
	fmt.Println()
}
