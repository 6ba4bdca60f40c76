// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestParseArgs_DefaultsToChat(t *testing.T) {
	cmd, _ := parseArgs(nil)
	if cmd != CmdChat {
		t.Errorf("cmd = %v, want CmdChat", cmd)
	}
}

func TestParseArgs_Commands(t *testing.T) {
	cases := []struct {
		in   []string
		want Command
	}{
		{[]string{"chat"}, CmdChat},
		{[]string{"serve"}, CmdServe},
		{[]string{"server"}, CmdServe},
		{[]string{"status"}, CmdStatus},
		{[]string{"s"}, CmdStatus},
		{[]string{"config"}, CmdConfig},
		{[]string{"export"}, CmdExport},
		{[]string{"version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"bogus"}, CmdHelp},
	}
	for _, tc := range cases {
		cmd, _ := parseArgs(tc.in)
		if cmd != tc.want {
			t.Errorf("parseArgs(%v) = %v, want %v", tc.in, cmd, tc.want)
		}
	}
}

func TestParseArgs_GlobalFlags(t *testing.T) {
	cmd, args := parseArgs([]string{"--model", "deepseek-reasoner", "-q", "chat"})
	if cmd != CmdChat {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.Model != "deepseek-reasoner" {
		t.Errorf("Model = %q", args.Model)
	}
	if !args.Quiet {
		t.Error("Quiet flag not parsed")
	}

	_, args = parseArgs([]string{"--model=env", "status"})
	if args.Model != "env" {
		t.Errorf("Model = %q", args.Model)
	}
}

func TestParseArgs_ServePort(t *testing.T) {
	_, args := parseArgs([]string{"serve", "--port", "9001"})
	if args.Port != 9001 {
		t.Errorf("Port = %d", args.Port)
	}

	_, args = parseArgs([]string{"serve", "--port=9002"})
	if args.Port != 9002 {
		t.Errorf("Port = %d", args.Port)
	}

	_, args = parseArgs([]string{"serve", "--port", "junk"})
	if args.Port != 0 {
		t.Errorf("Port = %d, want 0 for unparsable value", args.Port)
	}
}

func TestParseArgs_ConfigSubcommand(t *testing.T) {
	_, args := parseArgs([]string{"config", "key", "sk-test-123"})
	if args.Subcommand != "key" {
		t.Errorf("Subcommand = %q", args.Subcommand)
	}
	if args.Value != "sk-test-123" {
		t.Errorf("Value = %q", args.Value)
	}

	_, args = parseArgs([]string{"config"})
	if args.Subcommand != "" {
		t.Errorf("Subcommand = %q, want empty", args.Subcommand)
	}
}

func TestParseArgs_ExportOut(t *testing.T) {
	_, args := parseArgs([]string{"export", "-o", "dump.json"})
	if args.OutFile != "dump.json" {
		t.Errorf("OutFile = %q", args.OutFile)
	}

	_, args = parseArgs([]string{"export", "--out=all.json"})
	if args.OutFile != "all.json" {
		t.Errorf("OutFile = %q", args.OutFile)
	}
}

func TestXPBar(t *testing.T) {
	if got := xpBar(0, 100, 10); len(got) == 0 {
		t.Error("empty bar for valid inputs")
	}
	if got := xpBar(50, 0, 10); got != "" {
		t.Errorf("bar with zero threshold = %q, want empty", got)
	}
	// A full bar never overflows its width.
	full := xpBar(200, 100, 10)
	if len(full) == 0 {
		t.Error("overfull bar should still render")
	}
}
