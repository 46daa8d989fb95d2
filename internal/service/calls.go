package service

import (
	"sync"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
)

// CallTracker follows call phases per room. Signaling is never validated
// against it; it only decides when a disconnect must produce a call-end.
type CallTracker struct {
	mu       sync.Mutex
	sessions map[uint]*domain.CallSession
}

func NewCallTracker() *CallTracker {
	return &CallTracker{sessions: make(map[uint]*domain.CallSession)}
}

// Offer starts a session, replacing any previous one in the room.
func (t *CallTracker) Offer(roomID uint, connID string, caller string, video bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[roomID] = domain.NewCallSession(roomID, connID, caller, video)
}

// Ringing marks the offer from connID as delivered.
func (t *CallTracker) Ringing(roomID uint, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[roomID]
	if ok && session.CallerConnID == connID && session.Phase == domain.CallPhaseOffering {
		session.Phase = domain.CallPhaseRinging
	}
}

// Answer records connID as the answering party. An answer without a tracked
// offer still opens a session so the pair is covered on disconnect.
func (t *CallTracker) Answer(roomID uint, connID string, caller string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[roomID]
	if !ok {
		session = domain.NewCallSession(roomID, connID, caller, false)
		t.sessions[roomID] = session
	}
	session.AddParty(connID)
	session.Phase = domain.CallPhaseAnswered
}

// Reset forgets the room's session after a call-end or call-reject.
func (t *CallTracker) Reset(roomID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, roomID)
}

// Abandon is called when connID terminates. It resets every unresolved
// session that lists connID as a party, or that lives in one of the rooms
// connID was subscribed to, and returns the rooms that are owed a call-end.
// Resolved sessions involving connID are dropped silently.
func (t *CallTracker) Abandon(connID string, subscribed []uint) []uint {
	t.mu.Lock()
	defer t.mu.Unlock()

	inRoom := make(map[uint]struct{}, len(subscribed))
	for _, roomID := range subscribed {
		inRoom[roomID] = struct{}{}
	}

	var rooms []uint
	for roomID, session := range t.sessions {
		_, member := inRoom[roomID]
		if !member && !session.HasParty(connID) {
			continue
		}
		if !session.Phase.Unresolved() {
			if session.HasParty(connID) {
				delete(t.sessions, roomID)
			}
			continue
		}
		delete(t.sessions, roomID)
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (t *CallTracker) Phase(roomID uint) domain.CallPhase {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[roomID]
	if !ok {
		return domain.CallPhaseIdle
	}
	return session.Phase
}

// Session returns a copy of the tracked session, or nil.
func (t *CallTracker) Session(roomID uint) *domain.CallSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.sessions[roomID]
	if !ok {
		return nil
	}
	copied := *session
	copied.Parties = make(map[string]struct{}, len(session.Parties))
	for id := range session.Parties {
		copied.Parties[id] = struct{}{}
	}
	return &copied
}
