package converter

import "github.com/immxrtalbeast/chat_relay/internal/domain"

type UnreadResponse struct {
	TotalUnread int64                `json:"totalUnread"`
	RoomUnread  []RoomUnreadResponse `json:"roomUnread"`
}

type RoomUnreadResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	UnreadCount int64  `json:"unread_count"`
}

func UnreadToApi(s *domain.UnreadSummary) *UnreadResponse {
	resp := &UnreadResponse{RoomUnread: []RoomUnreadResponse{}}
	if s == nil {
		return resp
	}

	resp.TotalUnread = s.TotalUnread
	for _, room := range s.RoomUnread {
		resp.RoomUnread = append(resp.RoomUnread, RoomUnreadResponse{
			ID:          room.ID,
			Name:        room.Name,
			UnreadCount: room.UnreadCount,
		})
	}
	return resp
}
