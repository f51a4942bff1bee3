package domain

import "time"

// ReactionType is the closed set of reactions a user can leave on a report.
type ReactionType string

const (
	ReactionTypeAgree    ReactionType = "agree"
	ReactionTypeSupport  ReactionType = "support"
	ReactionTypeSad      ReactionType = "sad"
	ReactionTypeShock    ReactionType = "shock"
	ReactionTypeConfused ReactionType = "confused"
)

// Reaction links a user to a report with exactly one reaction type. The
// (UserID, ReportID) pair is unique: reacting again with a different type
// replaces the old reaction, reacting with the same type removes it.
type Reaction struct {
	UserID    string
	ReportID  string
	Type      ReactionType
	CreatedAt time.Time
}

// IsValidReactionType checks if a ReactionType is valid
func IsValidReactionType(t ReactionType) bool {
	switch t {
	case ReactionTypeAgree, ReactionTypeSupport, ReactionTypeSad,
		ReactionTypeShock, ReactionTypeConfused:
		return true
	}
	return false
}

// ReactionTypes returns every valid reaction type, in declaration order.
func ReactionTypes() []ReactionType {
	return []ReactionType{
		ReactionTypeAgree,
		ReactionTypeSupport,
		ReactionTypeSad,
		ReactionTypeShock,
		ReactionTypeConfused,
	}
}
