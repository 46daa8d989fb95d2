package domain

import "time"

// Room is read-only to the relay. A nil CreatedBy marks a public (default) room;
// any other room is private and requires a membership row.
type Room struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedBy *uint     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Room) IsPrivate() bool {
	return r != nil && r.CreatedBy != nil
}

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type Membership struct {
	RoomID     uint       `json:"room_id"`
	UserID     uint       `json:"user_id"`
	Role       Role       `json:"role"`
	LastReadAt *time.Time `json:"last_read_at"`
	JoinedAt   time.Time  `json:"joined_at"`
}

func (m *Membership) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}

type RoomUnread struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	UnreadCount int64  `json:"unread_count"`
}

type UnreadSummary struct {
	TotalUnread int64        `json:"totalUnread"`
	RoomUnread  []RoomUnread `json:"roomUnread"`
}
