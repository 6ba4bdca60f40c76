// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Player progression summary for the dojoquest CLI.
package cli

import (
	"fmt"
	"strings"
)

// HandleStatus prints the player's progression.
func HandleStatus(args Args) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	st := e.state.Status()
	p := st.Profile
	modeTitle := fmt.Sprintf("%s (%s)", st.ModeName, p.CurrentMode)

	fmt.Println(titleStyle.Render("DojoQuest - Player Status"))
	fmt.Println()
	fmt.Printf("%s %s\n", labelStyle.Render("Player"), valueStyle.Render(p.Username))
	fmt.Printf("%s %s\n", labelStyle.Render("Level"),
		valueStyle.Render(fmt.Sprintf("%d - %s", p.Level, p.Title)))
	fmt.Printf("%s %s %s\n", labelStyle.Render("XP"),
		xpBar(p.XP, p.NextLevelXP, 24),
		valueStyle.Render(fmt.Sprintf("%d/%d", p.XP, p.NextLevelXP)))
	fmt.Printf("%s %s\n", labelStyle.Render("Zone"), valueStyle.Render(modeTitle))
	fmt.Printf("%s %s\n", labelStyle.Render("Strikes"),
		valueStyle.Render(fmt.Sprintf("%d/3", p.ConsecutiveFailures)))

	if len(p.UnlockedSkills) > 0 {
		fmt.Printf("%s %s\n", labelStyle.Render("Skills"),
			valueStyle.Render(strings.Join(p.UnlockedSkills, ", ")))
	}
	if len(p.CompletedScenarios) > 0 {
		fmt.Printf("%s %s\n", labelStyle.Render("Scenarios"),
			valueStyle.Render(strings.Join(p.CompletedScenarios, ", ")))
	}
	if !args.Quiet {
		hasKey := "not set"
		if e.state.APIKey() != "" || e.cfg.API.Key != "" {
			hasKey = "configured"
		}
		fmt.Println()
		fmt.Printf("%s %s\n", labelStyle.Render("API key"), dimStyle.Render(hasKey))
		fmt.Printf("%s %s\n", labelStyle.Render("Model"), dimStyle.Render(e.cfg.API.Model))
	}
	return nil
}
