package converter

import (
	"time"

	"github.com/immxrtalbeast/chat_relay/internal/domain"
)

type RecordingResponse struct {
	ID           uint      `json:"id"`
	RoomID       uint      `json:"room_id"`
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	DurationSec  int       `json:"duration_sec"`
	StartedBy    string    `json:"started_by,omitempty"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

func RecordingToApi(r *domain.Recording) *RecordingResponse {
	participants := r.Participants
	if participants == nil {
		participants = []string{}
	}
	return &RecordingResponse{
		ID:           r.ID,
		RoomID:       r.RoomID,
		Filename:     r.Filename,
		Path:         r.Path,
		DurationSec:  r.DurationSec,
		StartedBy:    r.StartedBy,
		Participants: participants,
		CreatedAt:    r.CreatedAt,
	}
}

func RecordingsToApi(recs []*domain.Recording) []*RecordingResponse {
	out := make([]*RecordingResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecordingToApi(r))
	}
	return out
}
