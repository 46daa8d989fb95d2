package service

import (
	"context"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
)

type Authenticator interface {
	Authenticate(token string) (domain.Identity, error)
}

type RelayInteractor interface {
	Connect(ctx context.Context, identity domain.Identity) *domain.Connection
	Handle(ctx context.Context, conn *domain.Connection, event domain.ClientEvent) error
	EmitError(ctx context.Context, conn *domain.Connection, err error)
	Disconnect(ctx context.Context, conn *domain.Connection)
}

type RoomInteractor interface {
	JoinRoom(ctx context.Context, identity domain.Identity, roomID uint) error
	AddMembers(ctx context.Context, identity domain.Identity, roomID uint, userIDs []uint) (int, error)
	UnreadCounts(ctx context.Context, identity domain.Identity) (*domain.UnreadSummary, error)
}

type RecordingInteractor interface {
	Save(ctx context.Context, in SaveRecordingInput) (*domain.Recording, error)
	List(ctx context.Context, roomID uint) ([]*domain.Recording, error)
	Open(name string) (string, error)
}
