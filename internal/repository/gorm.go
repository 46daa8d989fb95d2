package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) GetByID(ctx context.Context, id uint) (*domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var room model.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return toDomainRoom(&room), nil
}

type GormMembershipRepository struct {
	db *gorm.DB
}

func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

func (r *GormMembershipRepository) Get(ctx context.Context, roomID, userID uint) (*domain.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var member model.RoomMember
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	return toDomainMembership(&member), nil
}

func (r *GormMembershipRepository) Add(ctx context.Context, roomID, userID uint, role domain.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if role == "" {
		role = domain.RoleMember
	}

	member := model.RoomMember{
		RoomID:   roomID,
		UserID:   userID,
		Role:     string(role),
		JoinedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error
}

func (r *GormMembershipRepository) UpdateLastRead(ctx context.Context, roomID, userID uint, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	at = at.UTC()
	member := model.RoomMember{
		RoomID:     roomID,
		UserID:     userID,
		Role:       string(domain.RoleMember),
		LastReadAt: &at,
		JoinedAt:   at,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_read_at"}),
		}).
		Create(&member).Error
}

const unreadCountsQuery = `
SELECT r.id, r.name,
       COUNT(CASE WHEN m.id IS NOT NULL AND (rm.last_read_at IS NULL OR m.created_at > rm.last_read_at) THEN 1 END) AS unread_count
FROM rooms r
INNER JOIN room_members rm ON r.id = rm.room_id
LEFT JOIN messages m ON r.id = m.room_id
WHERE rm.user_id = ?
GROUP BY r.id, r.name
HAVING COUNT(CASE WHEN m.id IS NOT NULL AND (rm.last_read_at IS NULL OR m.created_at > rm.last_read_at) THEN 1 END) > 0
ORDER BY r.id`

func (r *GormMembershipRepository) UnreadCounts(ctx context.Context, userID uint) (*domain.UnreadSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []domain.RoomUnread
	if err := r.db.WithContext(ctx).Raw(unreadCountsQuery, userID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := &domain.UnreadSummary{RoomUnread: make([]domain.RoomUnread, 0, len(rows))}
	for _, row := range rows {
		summary.TotalUnread += row.UnreadCount
		summary.RoomUnread = append(summary.RoomUnread, row)
	}
	return summary, nil
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

type messageRow struct {
	ID          uint
	RoomID      uint
	UserID      uint
	Content     string
	CreatedAt   time.Time
	SenderName  string
	SenderEmail string
}

func (r *GormMessageRepository) CreateWithSender(ctx context.Context, roomID, userID uint, content string) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var row messageRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg := model.Message{
			RoomID:    roomID,
			UserID:    userID,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		res := tx.Table("messages AS m").
			Select("m.id, m.room_id, m.user_id, m.content, m.created_at, u.name AS sender_name, u.email AS sender_email").
			Joins("JOIN users u ON u.id = m.user_id").
			Where("m.id = ?", msg.ID).
			Scan(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.Message{
		ID:          row.ID,
		RoomID:      row.RoomID,
		UserID:      row.UserID,
		Content:     row.Content,
		CreatedAt:   row.CreatedAt.UTC(),
		SenderName:  row.SenderName,
		SenderEmail: row.SenderEmail,
	}, nil
}

type GormRecordingRepository struct {
	db *gorm.DB
}

func NewGormRecordingRepository(db *gorm.DB) *GormRecordingRepository {
	return &GormRecordingRepository{db: db}
}

func (r *GormRecordingRepository) Create(ctx context.Context, rec *domain.Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil {
		return errors.New("recording is nil")
	}

	row := toModelRecording(rec)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	return nil
}

func (r *GormRecordingRepository) ListByRoom(ctx context.Context, roomID uint, limit int) ([]*domain.Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []model.CallRecording
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Recording, 0, len(rows))
	for i := range rows {
		result = append(result, toDomainRecording(&rows[i]))
	}
	return result, nil
}

func toDomainRoom(room *model.Room) *domain.Room {
	return &domain.Room{
		ID:        room.ID,
		Name:      room.Name,
		CreatedBy: room.CreatedBy,
		CreatedAt: room.CreatedAt.UTC(),
	}
}

func toDomainMembership(member *model.RoomMember) *domain.Membership {
	var lastRead *time.Time
	if member.LastReadAt != nil {
		t := member.LastReadAt.UTC()
		lastRead = &t
	}
	return &domain.Membership{
		RoomID:     member.RoomID,
		UserID:     member.UserID,
		Role:       domain.Role(member.Role),
		LastReadAt: lastRead,
		JoinedAt:   member.JoinedAt.UTC(),
	}
}

func toModelRecording(rec *domain.Recording) *model.CallRecording {
	var startedBy, participants *string
	if rec.StartedBy != "" {
		s := rec.StartedBy
		startedBy = &s
	}
	if len(rec.Participants) > 0 {
		p := strings.Join(rec.Participants, ",")
		participants = &p
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &model.CallRecording{
		RoomID:       rec.RoomID,
		Filename:     rec.Filename,
		Path:         rec.Path,
		DurationSec:  rec.DurationSec,
		StartedBy:    startedBy,
		Participants: participants,
		CreatedAt:    createdAt.UTC(),
	}
}

func toDomainRecording(row *model.CallRecording) *domain.Recording {
	rec := &domain.Recording{
		ID:          row.ID,
		RoomID:      row.RoomID,
		Filename:    row.Filename,
		Path:        row.Path,
		DurationSec: row.DurationSec,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if row.StartedBy != nil {
		rec.StartedBy = *row.StartedBy
	}
	if row.Participants != nil && *row.Participants != "" {
		rec.Participants = strings.Split(*row.Participants, ",")
	}
	return rec
}
