package service

import (
	"context"
	"time"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockRoomRepository struct {
	mock.Mock
}

func (m *mockRoomRepository) GetByID(ctx context.Context, id uint) (*domain.Room, error) {
	args := m.Called(ctx, id)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Error(1)
}

type mockMembershipRepository struct {
	mock.Mock
}

func (m *mockMembershipRepository) Get(ctx context.Context, roomID, userID uint) (*domain.Membership, error) {
	args := m.Called(ctx, roomID, userID)
	member, _ := args.Get(0).(*domain.Membership)
	return member, args.Error(1)
}

func (m *mockMembershipRepository) Add(ctx context.Context, roomID, userID uint, role domain.Role) error {
	args := m.Called(ctx, roomID, userID, role)
	return args.Error(0)
}

func (m *mockMembershipRepository) UpdateLastRead(ctx context.Context, roomID, userID uint, at time.Time) error {
	args := m.Called(ctx, roomID, userID, at)
	return args.Error(0)
}

func (m *mockMembershipRepository) UnreadCounts(ctx context.Context, userID uint) (*domain.UnreadSummary, error) {
	args := m.Called(ctx, userID)
	summary, _ := args.Get(0).(*domain.UnreadSummary)
	return summary, args.Error(1)
}

type mockMessageRepository struct {
	mock.Mock
}

func (m *mockMessageRepository) CreateWithSender(ctx context.Context, roomID, userID uint, content string) (*domain.Message, error) {
	args := m.Called(ctx, roomID, userID, content)
	msg, _ := args.Get(0).(*domain.Message)
	return msg, args.Error(1)
}

type mockRecordingRepository struct {
	mock.Mock
}

func (m *mockRecordingRepository) Create(ctx context.Context, rec *domain.Recording) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockRecordingRepository) ListByRoom(ctx context.Context, roomID uint, limit int) ([]*domain.Recording, error) {
	args := m.Called(ctx, roomID, limit)
	recs, _ := args.Get(0).([]*domain.Recording)
	return recs, args.Error(1)
}
