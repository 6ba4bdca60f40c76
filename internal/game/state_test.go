// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package game

import (
	"testing"

	"github.com/jeranaias/dojoquest/internal/docstore"
	"github.com/jeranaias/dojoquest/internal/kv"
)

func newTestState(t *testing.T) (*State, *kv.MemoryKV) {
	t.Helper()
	medium := kv.NewMemory()
	state, err := NewState(docstore.Open(medium))
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	return state, medium
}

func TestNewState_CreatesDefaults(t *testing.T) {
	state, _ := newTestState(t)

	p := state.Profile()
	if p.Level != 1 || p.XP != 0 || p.NextLevelXP != 100 {
		t.Errorf("default profile = Lv.%d %d/%d, want Lv.1 0/100", p.Level, p.XP, p.NextLevelXP)
	}
	if p.CurrentMode != ModeNovice {
		t.Errorf("default mode = %q, want %q", p.CurrentMode, ModeNovice)
	}
	if state.SessionID() == "" {
		t.Error("no active session after NewState")
	}
}

func TestNewState_ReloadsExistingProfile(t *testing.T) {
	medium := kv.NewMemory()

	state, err := NewState(docstore.Open(medium))
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	state.AddXp(40)
	state.UnlockSkill("caching")
	firstSession := state.SessionID()

	// Fresh state over the same medium sees the same profile and session.
	reloaded, err := NewState(docstore.Open(medium))
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	p := reloaded.Profile()
	if p.XP != 40 {
		t.Errorf("reloaded xp = %d, want 40", p.XP)
	}
	if len(p.UnlockedSkills) != 1 || p.UnlockedSkills[0] != "caching" {
		t.Errorf("reloaded skills = %v", p.UnlockedSkills)
	}
	if reloaded.SessionID() != firstSession {
		t.Errorf("reloaded session = %q, want %q", reloaded.SessionID(), firstSession)
	}
}

func TestAddXp_MultiLevelJump(t *testing.T) {
	state, _ := newTestState(t)
	state.SetMode(ModeTower) // cap 999, never suppresses at Lv.1

	res, err := state.AddXp(260)
	if err != nil {
		t.Fatalf("AddXp failed: %v", err)
	}
	if res.Awarded != 260 || !res.LeveledUp {
		t.Errorf("result = %+v, want full award with level up", res)
	}

	p := state.Profile()
	// 260 - 100 - 150 = 10 left, thresholds 100 -> 150 -> 225.
	if p.Level != 3 {
		t.Errorf("level = %d, want 3", p.Level)
	}
	if p.XP != 10 {
		t.Errorf("xp = %d, want 10", p.XP)
	}
	if p.NextLevelXP != 225 {
		t.Errorf("nextLevelXp = %d, want 225", p.NextLevelXP)
	}
}

func TestAddXp_LevelCapSuppression(t *testing.T) {
	state, _ := newTestState(t)
	state.SetMode(ModeTower)
	state.AddXp(100 + 150 + 225 + 340 + 510) // push well past Lv.5

	if state.Profile().Level <= 5 {
		t.Fatalf("setup: level = %d, want > 5", state.Profile().Level)
	}

	// Back to the novice zone (cap 5): any award is forced to zero.
	state.SetMode(ModeNovice)
	before := state.Profile().XP
	for _, amount := range []int{1, 10, 10000} {
		res, err := state.AddXp(amount)
		if err != nil {
			t.Fatalf("AddXp failed: %v", err)
		}
		if res.Awarded != 0 {
			t.Errorf("AddXp(%d) awarded %d above cap, want 0", amount, res.Awarded)
		}
		if res.Note == "" {
			t.Error("suppressed award carried no explanatory note")
		}
	}
	if got := state.Profile().XP; got != before {
		t.Errorf("xp changed under suppression: %d -> %d", before, got)
	}
}

func TestAddXp_CapZeroDoesNotSuppress(t *testing.T) {
	state, _ := newTestState(t)
	state.SetMode(ModeLibrary) // cap 0: gating off

	res, err := state.AddXp(30)
	if err != nil {
		t.Fatalf("AddXp failed: %v", err)
	}
	if res.Awarded != 30 || res.Note != "" {
		t.Errorf("cap-0 mode suppressed: %+v", res)
	}
}

func TestTitleBreakpoints(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{1, "Apprentice"},
		{4, "Apprentice"},
		{5, "Senior Developer"},
		{10, "Systems Architect"},
		{19, "Systems Architect"},
		{20, "Legendary Grandmaster"},
		{42, "Legendary Grandmaster"},
	}
	for _, tt := range tests {
		if got := titleFor(tt.level); got != tt.want {
			t.Errorf("titleFor(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestUnlockSkill_Idempotent(t *testing.T) {
	state, medium := newTestState(t)

	if err := state.UnlockSkill("sagas"); err != nil {
		t.Fatalf("UnlockSkill failed: %v", err)
	}
	writes := medium.SetCount

	// Second unlock: no-op, no persistence write.
	if err := state.UnlockSkill("sagas"); err != nil {
		t.Fatalf("UnlockSkill failed: %v", err)
	}
	if medium.SetCount != writes {
		t.Errorf("idempotent unlock performed %d extra writes", medium.SetCount-writes)
	}

	skills := state.Profile().UnlockedSkills
	if len(skills) != 1 {
		t.Errorf("skills = %v, want exactly one occurrence", skills)
	}
}

func TestCompleteScenario_Idempotent(t *testing.T) {
	state, _ := newTestState(t)
	state.CompleteScenario("month-end-close")
	state.CompleteScenario("month-end-close")
	if got := state.Profile().CompletedScenarios; len(got) != 1 {
		t.Errorf("scenarios = %v, want one entry", got)
	}
}

func TestFailureCounter(t *testing.T) {
	state, _ := newTestState(t)

	for want := 1; want <= 3; want++ {
		n, err := state.RecordFailure()
		if err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
		if n != want {
			t.Errorf("RecordFailure = %d, want %d", n, want)
		}
	}

	if err := state.ResetFailures(); err != nil {
		t.Fatalf("ResetFailures failed: %v", err)
	}
	if state.Failures() != 0 {
		t.Errorf("Failures = %d after reset, want 0", state.Failures())
	}
}

func TestAPIKey_ObfuscatedAtRest(t *testing.T) {
	state, _ := newTestState(t)

	const key = "sk-super-secret"
	if err := state.SetAPIKey(key); err != nil {
		t.Fatalf("SetAPIKey failed: %v", err)
	}
	if got := state.APIKey(); got != key {
		t.Errorf("APIKey round trip = %q, want %q", got, key)
	}
	// The stored form is not the clear text.
	if stored := state.Profile().APIKey; stored == key || stored == "" {
		t.Errorf("at-rest key = %q, want obfuscated non-empty", stored)
	}
}

func TestSetMode_MirrorsOntoSession(t *testing.T) {
	medium := kv.NewMemory()
	db := docstore.Open(medium)
	state, err := NewState(db)
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}

	if err := state.SetMode(ModeBattlefield); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}
	if state.Mode() != ModeBattlefield {
		t.Errorf("Mode = %q", state.Mode())
	}

	session, ok := db.Collection(ColSessions).FindOne(
		docstore.Document{docstore.FieldID: state.SessionID()})
	if !ok {
		t.Fatal("active session document missing")
	}
	if session["mode"] != ModeBattlefield {
		t.Errorf("session mode = %v, want %q", session["mode"], ModeBattlefield)
	}
}

func TestChatHistory_ScopedAndOrdered(t *testing.T) {
	state, _ := newTestState(t)

	state.AddChatMessage(RoleUser, "q1")
	state.AddChatMessage(RoleAgent, "a1")
	state.AddChatMessage(RoleUser, "q2")

	// A second session's entries must not leak into the first's history.
	state.StartNewSession()
	state.AddChatMessage(RoleUser, "other session")

	history := state.ChatHistory()
	if len(history) != 1 || history[0].Content != "other session" {
		t.Fatalf("active session history = %v", history)
	}

	// Clearing deletes only the active session's entries.
	if err := state.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	if got := state.ChatHistory(); len(got) != 0 {
		t.Errorf("history after clear = %v", got)
	}
}

func TestChatHistory_AscendingOrder(t *testing.T) {
	state, _ := newTestState(t)
	for _, c := range []string{"one", "two", "three"} {
		state.AddChatMessage(RoleUser, c)
	}
	history := state.ChatHistory()
	if len(history) != 3 {
		t.Fatalf("history len = %d, want 3", len(history))
	}
	for i, want := range []string{"one", "two", "three"} {
		if history[i].Content != want {
			t.Errorf("history[%d] = %q, want %q", i, history[i].Content, want)
		}
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt < history[i-1].CreatedAt {
			t.Error("history not ascending by creation time")
		}
	}
}

func TestStatus_ResolvesModeName(t *testing.T) {
	state, _ := newTestState(t)

	st := state.Status()
	if st.ModeName == "" || st.ModeName == st.Profile.CurrentMode {
		t.Errorf("mode name not resolved: %q", st.ModeName)
	}

	if err := state.SetMode("no_such_mode"); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}
	if got := state.Status().ModeName; got != "no_such_mode" {
		t.Errorf("unknown mode should fall back to the raw id, got %q", got)
	}
}
