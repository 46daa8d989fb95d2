package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pion/webrtc/v3"
)

type EventName string

// Client to server.
const (
	EventJoinRoom     EventName = "join_room"
	EventLeaveRoom    EventName = "leave_room"
	EventSendMessage  EventName = "send_message"
	EventTyping       EventName = "typing"
	EventStopTyping   EventName = "stop_typing"
	EventMarkRead     EventName = "mark_read"
	EventCallOffer    EventName = "call-offer"
	EventCallAnswer   EventName = "call-answer"
	EventICECandidate EventName = "ice-candidate"
	EventCallEnd      EventName = "call-end"
	EventCallReject   EventName = "call-reject"
)

// Server to client. Call events reuse the client names above.
const (
	EventConnected         EventName = "connected"
	EventRoomJoined        EventName = "room_joined"
	EventNewMessage        EventName = "new_message"
	EventUserTyping        EventName = "user_typing"
	EventUserStoppedTyping EventName = "user_stopped_typing"
	EventMessagesRead      EventName = "messages_read"
	EventError             EventName = "error"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Frame is the envelope of every websocket text message in both directions.
type Frame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ClientEvent is the closed set of events a client may send. Every
// implementation carries the room it targets.
type ClientEvent interface {
	Name() EventName
	Room() uint
	validate() error
}

// FlexID decodes a room id sent either as a JSON number or as a numeric string.
type FlexID uint

func (id *FlexID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return fmt.Errorf("roomId: %w", err)
	}
	*id = FlexID(v)
	return nil
}

type RoomRef struct {
	RoomID FlexID `json:"roomId"`
}

func (r RoomRef) Room() uint {
	return uint(r.RoomID)
}

func (r RoomRef) validate() error {
	if r.RoomID == 0 {
		return fmt.Errorf("%w: roomId is required", ErrInvalidPayload)
	}
	return nil
}

type JoinRoom struct{ RoomRef }

func (JoinRoom) Name() EventName { return EventJoinRoom }

type LeaveRoom struct{ RoomRef }

func (LeaveRoom) Name() EventName { return EventLeaveRoom }

type SendMessage struct {
	RoomRef
	Content string `json:"content"`
}

func (SendMessage) Name() EventName { return EventSendMessage }

type Typing struct{ RoomRef }

func (Typing) Name() EventName { return EventTyping }

type StopTyping struct{ RoomRef }

func (StopTyping) Name() EventName { return EventStopTyping }

type MarkRead struct{ RoomRef }

func (MarkRead) Name() EventName { return EventMarkRead }

type CallOffer struct {
	RoomRef
	Offer  *webrtc.SessionDescription `json:"offer"`
	Video  bool                       `json:"video"`
	Caller string                     `json:"caller"`
}

func (CallOffer) Name() EventName { return EventCallOffer }

func (e CallOffer) validate() error {
	if err := e.RoomRef.validate(); err != nil {
		return err
	}
	if e.Offer == nil || e.Offer.Type != webrtc.SDPTypeOffer || e.Offer.SDP == "" {
		return fmt.Errorf("%w: offer must be an sdp offer", ErrInvalidPayload)
	}
	return nil
}

type CallAnswer struct {
	RoomRef
	Answer *webrtc.SessionDescription `json:"answer"`
	Caller string                     `json:"caller"`
}

func (CallAnswer) Name() EventName { return EventCallAnswer }

func (e CallAnswer) validate() error {
	if err := e.RoomRef.validate(); err != nil {
		return err
	}
	if e.Answer == nil || e.Answer.SDP == "" {
		return fmt.Errorf("%w: answer is required", ErrInvalidPayload)
	}
	if e.Answer.Type != webrtc.SDPTypeAnswer && e.Answer.Type != webrtc.SDPTypePranswer {
		return fmt.Errorf("%w: answer must be an sdp answer", ErrInvalidPayload)
	}
	return nil
}

// ICECandidate carries one trickled candidate. An empty candidate string is the
// end-of-candidates marker and is relayed like any other.
type ICECandidate struct {
	RoomRef
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
}

func (ICECandidate) Name() EventName { return EventICECandidate }

func (e ICECandidate) validate() error {
	if err := e.RoomRef.validate(); err != nil {
		return err
	}
	if e.Candidate == nil {
		return fmt.Errorf("%w: candidate is required", ErrInvalidPayload)
	}
	return nil
}

type CallEnd struct{ RoomRef }

func (CallEnd) Name() EventName { return EventCallEnd }

type CallReject struct {
	RoomRef
	Caller string `json:"caller"`
}

func (CallReject) Name() EventName { return EventCallReject }

// DecodeClientEvent parses one inbound frame into its typed event. Unknown
// event names and payloads missing required fields are rejected here.
func DecodeClientEvent(raw []byte) (ClientEvent, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var event ClientEvent
	switch frame.Event {
	case EventJoinRoom:
		event = &JoinRoom{}
	case EventLeaveRoom:
		event = &LeaveRoom{}
	case EventSendMessage:
		event = &SendMessage{}
	case EventTyping:
		event = &Typing{}
	case EventStopTyping:
		event = &StopTyping{}
	case EventMarkRead:
		event = &MarkRead{}
	case EventCallOffer:
		event = &CallOffer{}
	case EventCallAnswer:
		event = &CallAnswer{}
	case EventICECandidate:
		event = &ICECandidate{}
	case EventCallEnd:
		event = &CallEnd{}
	case EventCallReject:
		event = &CallReject{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}

	if len(frame.Data) == 0 || string(frame.Data) == "null" {
		return nil, fmt.Errorf("%w: data is required", ErrInvalidPayload)
	}
	if err := json.Unmarshal(frame.Data, event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := event.validate(); err != nil {
		return nil, err
	}

	return event, nil
}

type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       uint   `json:"userId"`
	UserName     string `json:"userName"`
}

type RoomJoinedPayload struct {
	RoomID uint `json:"roomId"`
}

type TypingPayload struct {
	UserID   uint   `json:"userId"`
	UserName string `json:"userName"`
}

type MessagesReadPayload struct {
	RoomID uint `json:"roomId"`
	UserID uint `json:"userId"`
}

type CallOfferPayload struct {
	Offer  webrtc.SessionDescription `json:"offer"`
	Video  bool                      `json:"video"`
	Caller string                    `json:"caller"`
	From   string                    `json:"from"`
}

type CallAnswerPayload struct {
	Answer webrtc.SessionDescription `json:"answer"`
	Caller string                    `json:"caller"`
	From   string                    `json:"from"`
}

type ICECandidatePayload struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      string                  `json:"from"`
}

type CallRejectPayload struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
}

// EncodeFrame renders a server event. A nil data value produces a frame
// without a data field, which is how call-end is delivered.
func EncodeFrame(name EventName, data any) ([]byte, error) {
	frame := struct {
		Event EventName `json:"event"`
		Data  any       `json:"data,omitempty"`
	}{
		Event: name,
		Data:  data,
	}
	return json.Marshal(frame)
}
