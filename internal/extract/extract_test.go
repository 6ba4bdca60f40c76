// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FencedSettlement(t *testing.T) {
	input := "All good.\n```json\n{ \"cmd\": \"settle\", \"xp\": 50, \"msg\": \"ok\" }\n```"

	clean, cmd := Parse(input)
	assert.Equal(t, "All good.", clean)
	require.NotNil(t, cmd)
	assert.Equal(t, CmdSettle, cmd.Cmd)
	assert.Equal(t, 50, cmd.XP)
	assert.Equal(t, "ok", cmd.Msg)
}

func TestParse_UnfencedSettlement(t *testing.T) {
	input := "Victory.\n{ \"cmd\": \"settle\", \"xp\": 200, \"skill\": \"sagas\", \"msg\": \"flawless\" }"

	clean, cmd := Parse(input)
	assert.Equal(t, "Victory.", clean)
	require.NotNil(t, cmd)
	assert.Equal(t, "sagas", cmd.Skill)
	assert.Equal(t, 200, cmd.XP)
}

func TestParse_NoTrailingObject(t *testing.T) {
	input := "Just a normal explanation of generics. Nothing else."

	clean, cmd := Parse(input)
	assert.Equal(t, input, clean)
	assert.Nil(t, cmd)
}

func TestParse_UnrelatedTrailingJSON(t *testing.T) {
	// JSON-looking prose without the command markers must not be
	// extracted or stripped.
	input := "Here is a sample config:\n{ \"retries\": 3, \"timeout\": 30 }"

	clean, cmd := Parse(input)
	assert.Equal(t, input, clean)
	assert.Nil(t, cmd)
}

func TestParse_TrailingCommaTolerated(t *testing.T) {
	input := "Done.\n```json\n{ \"cmd\": \"settle\", \"xp\": 10, \"msg\": \"nice\", }\n```"

	clean, cmd := Parse(input)
	require.NotNil(t, cmd)
	assert.Equal(t, 10, cmd.XP)
	assert.Equal(t, "Done.", clean)
}

func TestParse_MalformedCandidateIgnored(t *testing.T) {
	// Contains the markers but is not parseable JSON: text must pass
	// through untouched with no mutation applied.
	input := "Hmm.\n{ \"cmd\": \"settle\" \"xp\": broken }"

	clean, cmd := Parse(input)
	assert.Equal(t, input, clean)
	assert.Nil(t, cmd)
}

func TestParse_EmbeddedCommandNotExtracted(t *testing.T) {
	// A settle block in the middle of the text is prose; only the
	// trailing block counts.
	input := "Earlier I showed { \"cmd\": \"settle\", \"xp\": 5 } as an example.\nThat's all."

	clean, cmd := Parse(input)
	assert.Nil(t, cmd)
	assert.Equal(t, input, clean)
}

func TestParse_ZeroXPFailure(t *testing.T) {
	input := "Wrong answer.\n```json\n{ \"cmd\": \"settle\", \"xp\": 0, \"msg\": \"try again\" }\n```"

	clean, cmd := Parse(input)
	require.NotNil(t, cmd)
	assert.Equal(t, 0, cmd.XP)
	assert.Equal(t, "Wrong answer.", clean)
}

func TestParse_TrailingWhitespaceAllowed(t *testing.T) {
	input := "Ok.\n```json\n{ \"cmd\": \"settle\", \"xp\": 10 }\n```   \n\n"

	clean, cmd := Parse(input)
	require.NotNil(t, cmd)
	assert.Equal(t, 10, cmd.XP)
	assert.Equal(t, "Ok.", clean)
}
