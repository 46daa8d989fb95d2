package domain

import "time"

// Message is the persisted chat row joined with a snapshot of the sender's
// name and email taken at send time.
type Message struct {
	ID          uint      `json:"id"`
	RoomID      uint      `json:"room_id"`
	UserID      uint      `json:"user_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email"`
}

type Recording struct {
	ID           uint      `json:"id"`
	RoomID       uint      `json:"room_id"`
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	DurationSec  int       `json:"duration_sec"`
	StartedBy    string    `json:"started_by,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
