package domain

import "time"

// Identity is the authenticated principal behind a connection. It is derived
// once from verified token claims and never changes for the connection's lifetime.
type Identity struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func NewIdentity(id uint, name string, email string) Identity {
	if name == "" {
		name = email
	}
	return Identity{
		ID:    id,
		Name:  name,
		Email: email,
	}
}

// User is the persisted profile the message relay denormalizes sender data from.
type User struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
