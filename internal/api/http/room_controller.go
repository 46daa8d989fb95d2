package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/chat_relay/internal/api/http/converter"
	"github.com/immxrtalbeast/chat_relay/internal/service"
)

type RoomController struct {
	rooms service.RoomInteractor
}

func NewRoomController(rooms service.RoomInteractor) *RoomController {
	return &RoomController{rooms: rooms}
}

func (c *RoomController) JoinRoom(ctx *gin.Context) {
	identity, ok := identityFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}
	roomID, ok := parseRoomID(ctx.Param("roomID"))
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	if err := c.rooms.JoinRoom(ctx.Request.Context(), identity, roomID); err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "roomId": roomID})
}

func (c *RoomController) AddMembers(ctx *gin.Context) {
	type request struct {
		UserIDs []uint `json:"userIds" binding:"required"`
	}

	identity, ok := identityFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}
	roomID, ok := parseRoomID(ctx.Param("roomID"))
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	added, err := c.rooms.AddMembers(ctx.Request.Context(), identity, roomID, req.UserIDs)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "added": added})
}

func (c *RoomController) Unread(ctx *gin.Context) {
	identity, ok := identityFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}

	summary, err := c.rooms.UnreadCounts(ctx.Request.Context(), identity)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, converter.UnreadToApi(summary))
}

func parseRoomID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
