package types

import "time"

// User is a person who can shepherd events, join them as sheep and leave
// observations.
type User struct {
	ID         int       `db:"id" json:"id"`
	Username   string    `db:"username" json:"username"`
	FacebookID string    `db:"facebook_id" json:"facebookId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Event is a named occurrence. Start and End are optional.
type Event struct {
	ID              int        `db:"id" json:"id"`
	EventName       string     `db:"event_name" json:"eventName"`
	Start           *time.Time `db:"starts_at" json:"start,omitempty"`
	End             *time.Time `db:"ends_at" json:"end,omitempty"`
	Location        string     `db:"location" json:"location"`
	MinParticipants int        `db:"min_participants" json:"minParticipants"`
	MaxParticipants int        `db:"max_participants" json:"maxParticipants"`
	Action          string     `db:"action" json:"action"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// Observation is a free-text note written by one user about one event.
type Observation struct {
	ID        int       `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	Completed bool      `db:"completed" json:"completed"`
	UserID    int       `db:"user_id" json:"userId"`
	EventID   int       `db:"event_id" json:"eventId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
