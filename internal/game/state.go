// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package game

import (
	"encoding/base64"
	"fmt"

	"github.com/jeranaias/dojoquest/internal/docstore"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Collection names.
const (
	ColUsers    = "users"
	ColSessions = "sessions"
	ColLogs     = "logs"
)

// CurrentUserID is the fixed identifier of the singleton profile document.
const CurrentUserID = "current_user"

// Log entry roles.
const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// XP growth: each level-up multiplies the next threshold by 3/2, floored.
const (
	baseNextLevelXP   = 100
	growthNumerator   = 3
	growthDenominator = 2
)

// Title breakpoints, highest matching level wins.
var titleBreakpoints = []struct {
	level int
	title string
}{
	{20, "Legendary Grandmaster"},
	{10, "Systems Architect"},
	{5, "Senior Developer"},
	{0, "Apprentice"},
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile is the singleton player record. The APIKey field holds the
// obfuscated at-rest form; use SetAPIKey/APIKey on State for the clear text.
type Profile struct {
	ID                  string
	Username            string
	Level               int
	Title               string
	XP                  int
	NextLevelXP         int
	UnlockedSkills      []string
	CompletedScenarios  []string
	APIKey              string
	CurrentMode         string
	ConsecutiveFailures int
}

func defaultProfile() Profile {
	return Profile{
		ID:          CurrentUserID,
		Username:    "Guest",
		Level:       1,
		Title:       titleFor(1),
		XP:          0,
		NextLevelXP: baseNextLevelXP,
		CurrentMode: ModeNovice,
	}
}

func titleFor(level int) string {
	for _, bp := range titleBreakpoints {
		if level >= bp.level {
			return bp.title
		}
	}
	return titleBreakpoints[len(titleBreakpoints)-1].title
}

// toDoc flattens the profile into a store document.
func (p Profile) toDoc() docstore.Document {
	return docstore.Document{
		docstore.FieldID:      p.ID,
		"username":            p.Username,
		"level":               p.Level,
		"title":               p.Title,
		"xp":                  p.XP,
		"nextLevelXp":         p.NextLevelXP,
		"unlockedSkills":      stringsToAny(p.UnlockedSkills),
		"completedScenarios":  stringsToAny(p.CompletedScenarios),
		"apiKey":              p.APIKey,
		"currentMode":         p.CurrentMode,
		"consecutiveFailures": p.ConsecutiveFailures,
	}
}

func profileFromDoc(d docstore.Document) Profile {
	return Profile{
		ID:                  d.ID(),
		Username:            asString(d["username"]),
		Level:               asInt(d["level"]),
		Title:               asString(d["title"]),
		XP:                  asInt(d["xp"]),
		NextLevelXP:         asInt(d["nextLevelXp"]),
		UnlockedSkills:      asStrings(d["unlockedSkills"]),
		CompletedScenarios:  asStrings(d["completedScenarios"]),
		APIKey:              asString(d["apiKey"]),
		CurrentMode:         asString(d["currentMode"]),
		ConsecutiveFailures: asInt(d["consecutiveFailures"]),
	}
}

// Store documents decode numbers as float64 after a reload; fresh inserts
// carry Go ints. These helpers absorb both.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// =============================================================================
// LOG ENTRIES
// =============================================================================

// LogEntry is one chat message scoped to a session.
type LogEntry struct {
	ID        string
	SessionID string
	Role      string
	Content   string
	CreatedAt int64
}

// =============================================================================
// STATE
// =============================================================================

// XPResult reports the outcome of an AddXp intent.
type XPResult struct {
	// Awarded is the XP actually added after cap policy.
	Awarded int
	// Note explains suppression when Awarded differs from the request.
	Note string
	// LeveledUp reports whether at least one level was gained.
	LeveledUp bool
}

// State owns the profile and session documents.
type State struct {
	db       *docstore.DB
	users    *docstore.Collection
	sessions *docstore.Collection
	logs     *docstore.Collection

	profile   Profile
	sessionID string
}

// NewState loads (or creates) the profile and ensures an active session.
func NewState(db *docstore.DB) (*State, error) {
	s := &State{
		db:       db,
		users:    db.Collection(ColUsers),
		sessions: db.Collection(ColSessions),
		logs:     db.Collection(ColLogs),
	}

	if doc, ok := s.users.FindOne(docstore.Document{docstore.FieldID: CurrentUserID}); ok {
		s.profile = profileFromDoc(doc)
	} else {
		s.profile = defaultProfile()
		if _, err := s.users.Insert(s.profile.toDoc()); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
	}

	if err := s.ensureSession(); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureSession picks the most recently created session, or starts one.
func (s *State) ensureSession() error {
	sessions := s.sessions.Find(nil)
	if len(sessions) == 0 {
		return s.StartNewSession()
	}
	latest := sessions[0]
	for _, doc := range sessions[1:] {
		if doc.CreatedAt() > latest.CreatedAt() {
			latest = doc
		}
	}
	s.sessionID = latest.ID()
	return nil
}

// StartNewSession creates a session in the current mode and makes it active.
func (s *State) StartNewSession() error {
	doc, err := s.sessions.Insert(docstore.Document{
		"title": "New Session",
		"mode":  s.profile.CurrentMode,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.sessionID = doc.ID()
	return nil
}

// SessionID returns the active session identifier.
func (s *State) SessionID() string {
	return s.sessionID
}

// Profile returns a snapshot of the current profile.
func (s *State) Profile() Profile {
	return s.profile
}

// saveProfile writes the full profile document back to the store.
func (s *State) saveProfile() error {
	_, err := s.users.Update(
		docstore.Document{docstore.FieldID: CurrentUserID},
		s.profile.toDoc())
	return err
}

// =============================================================================
// XP AND LEVELING
// =============================================================================

// AddXp awards XP subject to the active mode's level cap, then resolves any
// level-ups. A positive cap with the player's level above it forces the
// award to zero.
func (s *State) AddXp(amount int) (XPResult, error) {
	res := XPResult{Awarded: amount}

	if mode, ok := ModeByID(s.profile.CurrentMode); ok {
		if mode.LevelCap > 0 && s.profile.Level > mode.LevelCap {
			res.Awarded = 0
			res.Note = fmt.Sprintf("(level suppressed: Lv.%d > Lv.%d)", s.profile.Level, mode.LevelCap)
		}
	}

	s.profile.XP += res.Awarded
	res.LeveledUp = s.resolveLevelUps()

	if err := s.saveProfile(); err != nil {
		return res, err
	}
	return res, nil
}

// resolveLevelUps applies as many level-ups as the accumulated XP pays
// for. One large award can cross several levels.
func (s *State) resolveLevelUps() bool {
	leveled := false
	for s.profile.XP >= s.profile.NextLevelXP {
		s.profile.XP -= s.profile.NextLevelXP
		s.profile.Level++
		s.profile.NextLevelXP = s.profile.NextLevelXP * growthNumerator / growthDenominator
		leveled = true
	}
	if leveled {
		s.profile.Title = titleFor(s.profile.Level)
	}
	return leveled
}

// =============================================================================
// SKILLS AND SCENARIOS
// =============================================================================

// UnlockSkill adds a skill id. Idempotent: already-present skills cause no
// persistence write.
func (s *State) UnlockSkill(id string) error {
	for _, sk := range s.profile.UnlockedSkills {
		if sk == id {
			return nil
		}
	}
	s.profile.UnlockedSkills = append(s.profile.UnlockedSkills, id)
	return s.saveProfile()
}

// CompleteScenario marks a scenario done. Idempotent like UnlockSkill.
func (s *State) CompleteScenario(id string) error {
	for _, sc := range s.profile.CompletedScenarios {
		if sc == id {
			return nil
		}
	}
	s.profile.CompletedScenarios = append(s.profile.CompletedScenarios, id)
	return s.saveProfile()
}

// =============================================================================
// FAILURE TRACKING
// =============================================================================

// RecordFailure increments the consecutive-failure counter and returns the
// new count so the caller can apply its strike policy.
func (s *State) RecordFailure() (int, error) {
	s.profile.ConsecutiveFailures++
	return s.profile.ConsecutiveFailures, s.saveProfile()
}

// ResetFailures clears the consecutive-failure counter.
func (s *State) ResetFailures() error {
	if s.profile.ConsecutiveFailures == 0 {
		return nil
	}
	s.profile.ConsecutiveFailures = 0
	return s.saveProfile()
}

// Failures returns the current counter.
func (s *State) Failures() int {
	return s.profile.ConsecutiveFailures
}

// =============================================================================
// CREDENTIAL
// =============================================================================

// SetAPIKey stores the credential in reversible obfuscated form. This is a
// deterrent against shoulder-surfing of the stored state, not secrecy.
func (s *State) SetAPIKey(key string) error {
	s.profile.APIKey = obfuscate(key)
	return s.saveProfile()
}

// APIKey returns the clear-text credential, or "" when unset.
func (s *State) APIKey() string {
	return deobfuscate(s.profile.APIKey)
}

func obfuscate(key string) string {
	if key == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(key))
}

func deobfuscate(stored string) string {
	if stored == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		// Tolerate keys saved before obfuscation existed.
		return stored
	}
	return string(decoded)
}

// =============================================================================
// MODE
// =============================================================================

// SetMode switches the active mode on the profile and mirrors it onto the
// active session document.
func (s *State) SetMode(modeID string) error {
	s.profile.CurrentMode = modeID
	if err := s.saveProfile(); err != nil {
		return err
	}
	if s.sessionID != "" {
		if _, err := s.sessions.Update(
			docstore.Document{docstore.FieldID: s.sessionID},
			docstore.Document{"mode": modeID}); err != nil {
			return err
		}
	}
	return nil
}

// Mode returns the active mode id.
func (s *State) Mode() string {
	return s.profile.CurrentMode
}

// Status is a point-in-time progression summary for display.
type Status struct {
	Profile  Profile
	ModeName string
	Failures int
}

// Status resolves the active mode's display name alongside the profile
// snapshot. Unknown mode ids fall back to the raw id.
func (s *State) Status() Status {
	name := s.profile.CurrentMode
	if m, ok := ModeByID(s.profile.CurrentMode); ok {
		name = m.Title
	}
	return Status{
		Profile:  s.profile,
		ModeName: name,
		Failures: s.profile.ConsecutiveFailures,
	}
}

// =============================================================================
// CHAT LOG
// =============================================================================

// AddChatMessage appends a log entry to the active session.
func (s *State) AddChatMessage(role, content string) error {
	_, err := s.logs.Insert(docstore.Document{
		"sessionId": s.sessionID,
		"role":      role,
		"content":   content,
	})
	return err
}

// ChatHistory returns the active session's log entries in ascending
// creation order.
func (s *State) ChatHistory() []LogEntry {
	if s.sessionID == "" {
		return nil
	}
	docs := s.logs.Find(docstore.Document{"sessionId": s.sessionID})
	docstore.SortByCreatedAt(docs)

	out := make([]LogEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, LogEntry{
			ID:        d.ID(),
			SessionID: asString(d["sessionId"]),
			Role:      asString(d["role"]),
			Content:   asString(d["content"]),
			CreatedAt: d.CreatedAt(),
		})
	}
	return out
}

// ClearHistory deletes log entries for the active session only.
func (s *State) ClearHistory() error {
	if s.sessionID == "" {
		return nil
	}
	_, err := s.logs.Delete(docstore.Document{"sessionId": s.sessionID})
	return err
}
