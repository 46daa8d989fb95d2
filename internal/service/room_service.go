package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/repository"
	"github.com/immxrtalbeast/chat_relay/lib/logger/sl"
)

// RoomService manages persisted membership on behalf of the REST endpoints.
type RoomService struct {
	rooms   repository.RoomRepository
	members repository.MembershipRepository
	log     *slog.Logger
}

func NewRoomService(rooms repository.RoomRepository, members repository.MembershipRepository, log *slog.Logger) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		rooms:   rooms,
		members: members,
		log:     log,
	}
}

// JoinRoom adds the caller to a public room. Private rooms only accept
// members already added by an admin.
func (s *RoomService) JoinRoom(ctx context.Context, identity domain.Identity, roomID uint) error {
	const op = "service.room.join"
	log := s.log.With(
		slog.String("op", op),
		slog.Uint64("room_id", uint64(roomID)),
		slog.Uint64("user_id", uint64(identity.ID)),
	)

	room, err := s.getRoom(ctx, roomID, MsgJoinFailed)
	if err != nil {
		log.Warn("room lookup failed", sl.Err(err))
		return err
	}

	if room.IsPrivate() {
		_, err := s.members.Get(ctx, roomID, identity.ID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrMembershipNotFound):
			return newError(ErrAuthorization, MsgPrivateRoom, err)
		default:
			log.Error("membership lookup failed", sl.Err(err))
			return newError(ErrPersistence, MsgJoinFailed, err)
		}
	}

	if err := s.members.Add(ctx, roomID, identity.ID, domain.RoleMember); err != nil {
		log.Error("failed to add membership", sl.Err(err))
		return newError(ErrPersistence, MsgJoinFailed, err)
	}

	log.Info("membership added")
	return nil
}

// AddMembers inserts member rows for userIDs. Only an admin of the room may
// do this; existing rows are left unchanged. It returns the number of ids
// processed after de-duplication.
func (s *RoomService) AddMembers(ctx context.Context, identity domain.Identity, roomID uint, userIDs []uint) (int, error) {
	const op = "service.room.add_members"
	log := s.log.With(
		slog.String("op", op),
		slog.Uint64("room_id", uint64(roomID)),
		slog.Uint64("admin_id", uint64(identity.ID)),
	)

	if _, err := s.getRoom(ctx, roomID, MsgAddMembersFailed); err != nil {
		return 0, err
	}

	member, err := s.members.Get(ctx, roomID, identity.ID)
	if err != nil && !errors.Is(err, repository.ErrMembershipNotFound) {
		log.Error("membership lookup failed", sl.Err(err))
		return 0, newError(ErrPersistence, MsgAddMembersFailed, err)
	}
	if !member.IsAdmin() {
		return 0, newError(ErrAuthorization, MsgNotAdmin, nil)
	}

	seen := make(map[uint]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if userID == 0 {
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}

		if err := s.members.Add(ctx, roomID, userID, domain.RoleMember); err != nil {
			log.Error("failed to add member", slog.Uint64("user_id", uint64(userID)), sl.Err(err))
			return 0, newError(ErrPersistence, MsgAddMembersFailed, err)
		}
	}

	log.Info("members added", slog.Int("count", len(seen)))
	return len(seen), nil
}

func (s *RoomService) UnreadCounts(ctx context.Context, identity domain.Identity) (*domain.UnreadSummary, error) {
	const op = "service.room.unread"

	summary, err := s.members.UnreadCounts(ctx, identity.ID)
	if err != nil {
		s.log.Error("failed to count unread messages",
			slog.String("op", op),
			slog.Uint64("user_id", uint64(identity.ID)),
			sl.Err(err),
		)
		return nil, newError(ErrPersistence, MsgUnreadFailed, err)
	}
	return summary, nil
}

func (s *RoomService) getRoom(ctx context.Context, roomID uint, failure string) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, newError(ErrValidation, MsgRoomNotFound, err)
		}
		return nil, newError(ErrPersistence, failure, err)
	}
	return room, nil
}
