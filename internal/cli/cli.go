// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for dojoquest.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdServe
	CmdStatus
	CmdConfig
	CmdExport
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet bool
	Model string

	// Command-specific
	Port       int
	OutFile    string
	Subcommand string
	Value      string

	// Raw args (remaining after flag parsing)
	Raw []string
}

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

func parseArgs(raw []string) (Command, Args) {
	remaining, args := parseGlobalFlags(raw)

	// No arguments: interactive chat is the default.
	if len(remaining) == 0 {
		return CmdChat, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "chat":
		return CmdChat, args

	case "serve", "server":
		parseServeArgs(&args, remaining)
		return CmdServe, args

	case "status", "s":
		return CmdStatus, args

	case "config":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		if len(remaining) > 1 {
			args.Value = strings.Join(remaining[1:], " ")
		}
		return CmdConfig, args

	case "export":
		parseExportArgs(&args, remaining)
		return CmdExport, args

	case "version", "-V", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts flags valid for every command.
func parseGlobalFlags(raw []string) ([]string, Args) {
	var args Args
	remaining := make([]string, 0, len(raw))

	i := 0
	for i < len(raw) {
		switch raw[i] {
		case "-q", "--quiet":
			args.Quiet = true
			i++
		case "-m", "--model":
			if i+1 < len(raw) {
				args.Model = raw[i+1]
				i += 2
			} else {
				i++
			}
		default:
			if v, ok := strings.CutPrefix(raw[i], "--model="); ok {
				args.Model = v
				i++
				continue
			}
			remaining = append(remaining, raw[i])
			i++
		}
	}
	return remaining, args
}

func parseServeArgs(args *Args, raw []string) {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case "-p", "--port":
			if i+1 < len(raw) {
				if port, err := strconv.Atoi(raw[i+1]); err == nil {
					args.Port = port
				}
				i++
			}
		default:
			if v, ok := strings.CutPrefix(raw[i], "--port="); ok {
				if port, err := strconv.Atoi(v); err == nil {
					args.Port = port
				}
			}
		}
	}
}

func parseExportArgs(args *Args, raw []string) {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case "-o", "--out":
			if i+1 < len(raw) {
				args.OutFile = raw[i+1]
				i++
			}
		default:
			if v, ok := strings.CutPrefix(raw[i], "--out="); ok {
				args.OutFile = v
			}
		}
	}
}

// =============================================================================
// HELP
// =============================================================================

// HandleHelp prints usage information.
func HandleHelp(Args) {
	fmt.Print(`dojoquest - gamified programming study, one chat at a time

Usage:
  dojoquest [command] [flags]

Commands:
  chat           Interactive chat session (default)
  serve          Run the local backend (save sink + static hosting)
  status         Show player progression
  config         Show or change configuration
  export         Dump all collections as JSON
  version        Print version information
  help           Show this help

Global flags:
  -m, --model NAME   Override the chat model
  -q, --quiet        Minimal output

Serve flags:
  -p, --port N       Listen port (default 8000)

Export flags:
  -o, --out FILE     Write to FILE instead of stdout

Config usage:
  dojoquest config             Show current configuration
  dojoquest config key VALUE   Save the API key
  dojoquest config model NAME  Set the chat model

Chat commands (inside a session):
  /status /clear /mode /modes /key /new /help /quit
`)
}

// HandleVersion prints version information.
func HandleVersion(Args) {
	fmt.Printf("dojoquest %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
