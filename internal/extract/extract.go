// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract locates the settlement command a model reply may carry.
//
// The command is a trailing JSON object, optionally wrapped in a markdown
// code fence, at the very end of the streamed text. The guard is
// deliberately textual rather than schema-driven so minor formatting drift
// from the model does not drop a settlement; only a block containing both
// the command-type marker and the settle literal is considered at all.
// Embedded JSON earlier in the text is never extracted - the live render
// already showed it as prose.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// CmdSettle is the only command the client recognizes.
const CmdSettle = "settle"

// Command is the structured directive a reply may end with.
type Command struct {
	Cmd   string `json:"cmd"`
	XP    int    `json:"xp"`
	Skill string `json:"skill,omitempty"`
	Msg   string `json:"msg,omitempty"`
}

// trailingBlock matches a JSON-ish object at the end of the text, with
// optional ```json fencing and trailing whitespace.
var trailingBlock = regexp.MustCompile("(?is)(?:```(?:json)?\\s*)?(\\{.*?\\})\\s*(?:```)?\\s*$")

// trailingComma cleans the common model slip of a comma before a closing
// brace, which would otherwise fail strict JSON parsing.
var trailingComma = regexp.MustCompile(`,\s*}`)

// Parse splits a fully assembled reply into display text and an optional
// trailing command. When no acceptable command is found - no trailing
// block, guard markers missing, or the block fails to parse - the original
// text is returned unchanged with a nil command.
func Parse(content string) (clean string, cmd *Command) {
	match := trailingBlock.FindStringSubmatch(content)
	if match == nil {
		return content, nil
	}

	block := match[1]
	if !strings.Contains(block, `"cmd"`) || !strings.Contains(block, `"`+CmdSettle+`"`) {
		return content, nil
	}

	jsonStr := trailingComma.ReplaceAllString(block, "}")
	var parsed Command
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return content, nil
	}

	clean = strings.TrimSpace(strings.Replace(content, match[0], "", 1))
	return clean, &parsed
}
