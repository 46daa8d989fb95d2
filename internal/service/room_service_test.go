package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoomService_JoinRoom(t *testing.T) {
	store := newTestStore(t)
	rooms := NewRoomService(store, store, discardLogger())
	ctx := context.Background()

	require.NoError(t, rooms.JoinRoom(ctx, bob, publicRoom))
	member, err := store.Get(ctx, publicRoom, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, member.Role)

	// already a member of the private room
	require.NoError(t, rooms.JoinRoom(ctx, alice, privateRoom))

	err = rooms.JoinRoom(ctx, bob, privateRoom)
	assertRelayError(t, err, ErrAuthorization, MsgPrivateRoom)

	err = rooms.JoinRoom(ctx, bob, 404)
	assertRelayError(t, err, ErrValidation, MsgRoomNotFound)
}

func TestRoomService_AddMembers(t *testing.T) {
	store := newTestStore(t)
	rooms := NewRoomService(store, store, discardLogger())
	ctx := context.Background()

	added, err := rooms.AddMembers(ctx, alice, privateRoom, []uint{bob.ID, bob.ID, 0, carol.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	for _, id := range []uint{bob.ID, carol.ID} {
		member, err := store.Get(ctx, privateRoom, id)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleMember, member.Role)
	}

	// a plain member is not an admin
	_, err = rooms.AddMembers(ctx, bob, privateRoom, []uint{4})
	assertRelayError(t, err, ErrAuthorization, MsgNotAdmin)

	_, err = rooms.AddMembers(ctx, carol, publicRoom, []uint{4})
	assertRelayError(t, err, ErrAuthorization, MsgNotAdmin)

	// the admin row is never downgraded
	_, err = rooms.AddMembers(ctx, alice, privateRoom, []uint{alice.ID})
	require.NoError(t, err)
	member, err := store.Get(ctx, privateRoom, alice.ID)
	require.NoError(t, err)
	assert.True(t, member.IsAdmin())
}

func TestRoomService_AddMembersStoreFailure(t *testing.T) {
	store := newTestStore(t)
	members := new(mockMembershipRepository)
	rooms := NewRoomService(store, members, discardLogger())
	ctx := context.Background()

	members.On("Get", mock.Anything, privateRoom, alice.ID).
		Return(&domain.Membership{RoomID: privateRoom, UserID: alice.ID, Role: domain.RoleAdmin}, nil).
		Once()
	members.On("Add", mock.Anything, privateRoom, bob.ID, domain.RoleMember).
		Return(errors.New("too many connections")).
		Once()

	_, err := rooms.AddMembers(ctx, alice, privateRoom, []uint{bob.ID})
	assertRelayError(t, err, ErrPersistence, MsgAddMembersFailed)
	members.AssertExpectations(t)
}

func TestRoomService_UnreadCounts(t *testing.T) {
	store := newTestStore(t)
	rooms := NewRoomService(store, store, discardLogger())
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, privateRoom, bob.ID, domain.RoleMember))
	for _, content := range []string{"one", "two"} {
		_, err := store.CreateWithSender(ctx, privateRoom, alice.ID, content)
		require.NoError(t, err)
	}

	summary, err := rooms.UnreadCounts(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalUnread)
	require.Len(t, summary.RoomUnread, 1)
	assert.Equal(t, domain.RoomUnread{ID: privateRoom, Name: "Private", UnreadCount: 2}, summary.RoomUnread[0])

	require.NoError(t, store.UpdateLastRead(ctx, privateRoom, bob.ID, time.Now().Add(time.Second)))
	summary, err = rooms.UnreadCounts(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalUnread)
	assert.Empty(t, summary.RoomUnread)
}

func TestRoomService_UnreadCountsFailure(t *testing.T) {
	store := newTestStore(t)
	members := new(mockMembershipRepository)
	rooms := NewRoomService(store, members, discardLogger())

	members.On("UnreadCounts", mock.Anything, bob.ID).Return(nil, errors.New("timeout")).Once()

	_, err := rooms.UnreadCounts(context.Background(), bob)
	assertRelayError(t, err, ErrPersistence, MsgUnreadFailed)
	members.AssertExpectations(t)
}
