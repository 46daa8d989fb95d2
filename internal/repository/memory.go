package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
)

type memberKey struct {
	roomID uint
	userID uint
}

// InMemoryStore implements every repository interface over maps. It backs
// tests and local runs without a database.
type InMemoryStore struct {
	mu         sync.RWMutex
	users      map[uint]*domain.User
	rooms      map[uint]*domain.Room
	members    map[memberKey]*domain.Membership
	messages   []*domain.Message
	recordings []*domain.Recording
	nextMsgID  uint
	nextRecID  uint
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[uint]*domain.User),
		rooms:   make(map[uint]*domain.Room),
		members: make(map[memberKey]*domain.Membership),
	}
}

func (s *InMemoryStore) AddUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
}

func (s *InMemoryStore) AddRoom(room *domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	s.rooms[room.ID] = room
}

func (s *InMemoryStore) GetByID(ctx context.Context, id uint) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	copied := *room
	return &copied, nil
}

func (s *InMemoryStore) Get(ctx context.Context, roomID, userID uint) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[memberKey{roomID, userID}]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	copied := *member
	return &copied, nil
}

func (s *InMemoryStore) Add(ctx context.Context, roomID, userID uint, role domain.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if role == "" {
		role = domain.RoleMember
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{roomID, userID}
	if _, ok := s.members[key]; ok {
		return nil
	}
	s.members[key] = &domain.Membership{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	return nil
}

func (s *InMemoryStore) UpdateLastRead(ctx context.Context, roomID, userID uint, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at = at.UTC()
	key := memberKey{roomID, userID}
	member, ok := s.members[key]
	if !ok {
		member = &domain.Membership{RoomID: roomID, UserID: userID, Role: domain.RoleMember, JoinedAt: at}
		s.members[key] = member
	}
	member.LastReadAt = &at
	return nil
}

func (s *InMemoryStore) UnreadCounts(ctx context.Context, userID uint) (*domain.UnreadSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[uint]int64)
	for _, msg := range s.messages {
		member, ok := s.members[memberKey{msg.RoomID, userID}]
		if !ok {
			continue
		}
		if member.LastReadAt == nil || msg.CreatedAt.After(*member.LastReadAt) {
			counts[msg.RoomID]++
		}
	}

	summary := &domain.UnreadSummary{RoomUnread: make([]domain.RoomUnread, 0, len(counts))}
	for roomID, count := range counts {
		room, ok := s.rooms[roomID]
		if !ok {
			continue
		}
		summary.TotalUnread += count
		summary.RoomUnread = append(summary.RoomUnread, domain.RoomUnread{ID: roomID, Name: room.Name, UnreadCount: count})
	}
	sort.Slice(summary.RoomUnread, func(i, j int) bool {
		return summary.RoomUnread[i].ID < summary.RoomUnread[j].ID
	})
	return summary, nil
}

func (s *InMemoryStore) CreateWithSender(ctx context.Context, roomID, userID uint, content string) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	s.nextMsgID++
	msg := &domain.Message{
		ID:          s.nextMsgID,
		RoomID:      roomID,
		UserID:      userID,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
		SenderName:  user.Name,
		SenderEmail: user.Email,
	}
	s.messages = append(s.messages, msg)

	copied := *msg
	return &copied, nil
}

// Messages returns the stored messages of a room in insertion order.
func (s *InMemoryStore) Messages(roomID uint) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Message
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			result = append(result, *msg)
		}
	}
	return result
}

func (s *InMemoryStore) Create(ctx context.Context, rec *domain.Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRecID++
	rec.ID = s.nextRecID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	copied := *rec
	s.recordings = append(s.recordings, &copied)
	return nil
}

func (s *InMemoryStore) ListByRoom(ctx context.Context, roomID uint, limit int) ([]*domain.Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Recording, 0)
	for i := len(s.recordings) - 1; i >= 0; i-- {
		if s.recordings[i].RoomID != roomID {
			continue
		}
		copied := *s.recordings[i]
		result = append(result, &copied)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
