package domain

import "time"

// ChatTurn is one completed exchange between a user and the assistant.
// Turns are append-only and ordered by Timestamp ascending when the
// history window is reconstructed.
type ChatTurn struct {
	ID                string
	UserID            string
	UserMessage       string
	AssistantResponse string
	Timestamp         time.Time
}

// HistoryWindow is the number of most recent turns included as context
// when composing a generation prompt.
const HistoryWindow = 5
