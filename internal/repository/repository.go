package repository

import (
	"context"
	"errors"
	"time"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrMembershipNotFound = errors.New("membership not found")
)

type RoomRepository interface {
	GetByID(ctx context.Context, id uint) (*domain.Room, error)
}

type MembershipRepository interface {
	Get(ctx context.Context, roomID, userID uint) (*domain.Membership, error)
	// Add inserts a membership row and leaves an existing one untouched.
	Add(ctx context.Context, roomID, userID uint, role domain.Role) error
	// UpdateLastRead upserts the read watermark for (roomID, userID).
	UpdateLastRead(ctx context.Context, roomID, userID uint, at time.Time) error
	UnreadCounts(ctx context.Context, userID uint) (*domain.UnreadSummary, error)
}

type MessageRepository interface {
	// CreateWithSender persists a message and returns the stored row joined
	// with the sender's name and email.
	CreateWithSender(ctx context.Context, roomID, userID uint, content string) (*domain.Message, error)
}

type RecordingRepository interface {
	Create(ctx context.Context, rec *domain.Recording) error
	ListByRoom(ctx context.Context, roomID uint, limit int) ([]*domain.Recording, error)
}
