package model

import "strings"

// TrackedMember is a person whose pending reviews are reported on.
// Handle comparisons are case-insensitive everywhere.
type TrackedMember struct {
	Handle    string // GitHub login.
	MentionID string // Chat platform user ID; empty when the member has none.
}

// Matches reports whether login refers to this member.
func (m TrackedMember) Matches(login string) bool {
	return strings.EqualFold(m.Handle, login)
}

// Mention returns the chat mention for the member, falling back to @handle.
func (m TrackedMember) Mention() string {
	if m.MentionID != "" {
		return "<@" + m.MentionID + ">"
	}
	return "@" + m.Handle
}

// FindMember returns the tracked member matching login, if any.
func FindMember(members []TrackedMember, login string) (TrackedMember, bool) {
	for _, m := range members {
		if m.Matches(login) {
			return m, true
		}
	}
	return TrackedMember{}, false
}
