package service

import (
	"errors"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
)

// Error kinds. Every error returned to a connection wraps exactly one of them.
var (
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrValidation     = errors.New("validation error")
	ErrPersistence    = errors.New("persistence error")
	ErrProtocol       = errors.New("protocol error")
)

// Client-facing messages.
const (
	MsgNotMember          = "Not a member of this room"
	MsgNotAdmin           = "Only room admins can add members"
	MsgSendFailed         = "Failed to send message"
	MsgJoinFailed         = "Failed to join room"
	MsgRoomNotFound       = "Room not found"
	MsgEmptyContent       = "Message content cannot be empty"
	MsgContentTooLong     = "Message is too long"
	MsgNotJoined          = "Not joined to this room"
	MsgMarkReadFailed     = "Failed to mark messages as read"
	MsgInvalidPayload     = "Invalid payload"
	MsgUnknownEvent       = "Unknown event"
	MsgPrivateRoom        = "Private rooms can only be joined by invitation"
	MsgUnreadFailed       = "Failed to fetch unread counts"
	MsgAddMembersFailed   = "Failed to add members"
	MsgRecordingFailed    = "Failed to save recording"
	MsgRecordingNotFound  = "Recording not found"
	MsgRecordingListError = "Failed to list recordings"
)

// RelayError pairs an error kind with the message shown to the client.
type RelayError struct {
	Kind    error
	Message string
	Err     error
}

func (e *RelayError) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *RelayError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string, cause error) *RelayError {
	return &RelayError{Kind: kind, Message: message, Err: cause}
}

// ClientMessage returns the string sent in an error event for err.
func ClientMessage(err error) string {
	var relayErr *RelayError
	if errors.As(err, &relayErr) {
		return relayErr.Message
	}
	switch {
	case errors.Is(err, domain.ErrUnknownEvent):
		return MsgUnknownEvent
	case errors.Is(err, domain.ErrInvalidPayload):
		return MsgInvalidPayload
	default:
		return "Internal error"
	}
}
