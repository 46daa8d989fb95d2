package model

import "time"

type User struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Email     string    `gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type Room struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	CreatedBy *uint     `gorm:"index"`
	CreatedAt time.Time `gorm:"not null"`
}

type RoomMember struct {
	RoomID     uint   `gorm:"primaryKey;autoIncrement:false"`
	UserID     uint   `gorm:"primaryKey;autoIncrement:false;index"`
	Role       string `gorm:"size:16;not null;default:member"`
	LastReadAt *time.Time
	JoinedAt   time.Time `gorm:"not null"`
}

type Message struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"not null;index:idx_messages_room_created,priority:1"`
	UserID    uint      `gorm:"not null;index"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_messages_room_created,priority:2"`
}

type CallRecording struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       uint      `gorm:"not null;index"`
	Filename     string    `gorm:"size:255;not null"`
	Path         string    `gorm:"size:512;not null"`
	DurationSec  int       `gorm:"not null;default:0"`
	StartedBy    *string   `gorm:"size:255"`
	Participants *string   `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&User{}, &Room{}, &RoomMember{}, &Message{}, &CallRecording{}}
}
