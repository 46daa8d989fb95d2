package domain

import "time"

type CallPhase string

const (
	CallPhaseIdle      CallPhase = "idle"
	CallPhaseOffering  CallPhase = "offering"
	CallPhaseRinging   CallPhase = "ringing"
	CallPhaseAnswered  CallPhase = "answered"
	CallPhaseConnected CallPhase = "connected"
	CallPhaseEnded     CallPhase = "ended"
	CallPhaseRejected  CallPhase = "rejected"
)

// Unresolved reports whether a party leaving must produce a synthetic call-end.
func (p CallPhase) Unresolved() bool {
	switch p {
	case CallPhaseOffering, CallPhaseRinging, CallPhaseAnswered, CallPhaseConnected:
		return true
	default:
		return false
	}
}

// CallSession is the relay's ephemeral view of a call in a room. It is never
// persisted and never used to validate transitions; it exists so that a party
// dropping off can be turned into a call-end for the peers left behind.
type CallSession struct {
	RoomID       uint
	CallerConnID string
	Caller       string
	Video        bool
	Phase        CallPhase
	Parties      map[string]struct{}
	StartedAt    time.Time
}

func NewCallSession(roomID uint, callerConnID string, caller string, video bool) *CallSession {
	return &CallSession{
		RoomID:       roomID,
		CallerConnID: callerConnID,
		Caller:       caller,
		Video:        video,
		Phase:        CallPhaseOffering,
		Parties:      map[string]struct{}{callerConnID: {}},
		StartedAt:    time.Now().UTC(),
	}
}

func (c *CallSession) AddParty(connID string) {
	if c.Parties == nil {
		c.Parties = make(map[string]struct{})
	}
	c.Parties[connID] = struct{}{}
}

func (c *CallSession) HasParty(connID string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Parties[connID]
	return ok
}
