package types

import "time"

// EventType names an audit event.
type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventUserLoggedIn   EventType = "user.logged_in"
	EventPromptAsked    EventType = "prompt.asked"
)

// Event is an audit record published after a user-visible action succeeds.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`

	// Type names what happened.
	Type EventType `json:"type"`

	// UserID identifies the user the event concerns.
	UserID int `json:"userId"`

	// OccurredAt is the timestamp of the action.
	OccurredAt time.Time `json:"occurredAt"`
}
