package types

import "time"

// Transcript records a single /api/ai/ask exchange.
// It is written to the transcript archive after the model has answered.
type Transcript struct {
	// ID is the unique identifier of the transcript.
	ID string `json:"id"`

	// UserID identifies the user who asked.
	UserID int `json:"userId"`

	// Prompt is the text the user submitted, unmodified.
	Prompt string `json:"prompt"`

	// EnrichedPrompt is the prompt after historical and biographical
	// context was appended. It equals Prompt when no context applied.
	EnrichedPrompt string `json:"enrichedPrompt"`

	// Year is the year detected in the prompt, or zero.
	Year int `json:"year,omitempty"`

	// Person is the name extracted from the prompt, if any.
	Person string `json:"person,omitempty"`

	// Response is the model's answer.
	Response string `json:"response"`

	// CreatedAt is the timestamp when the answer was received.
	CreatedAt time.Time `json:"createdAt"`
}
