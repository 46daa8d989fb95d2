package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/chat_relay/internal/api/http/converter"
	"github.com/immxrtalbeast/chat_relay/internal/service"
)

type RecordingController struct {
	recordings service.RecordingInteractor
}

func NewRecordingController(recordings service.RecordingInteractor) *RecordingController {
	return &RecordingController{recordings: recordings}
}

func (c *RecordingController) Upload(ctx *gin.Context) {
	type request struct {
		RoomID       uint     `json:"roomId" binding:"required"`
		Filename     string   `json:"filename" binding:"required"`
		Base64       string   `json:"base64" binding:"required"`
		Duration     int      `json:"duration"`
		StartedBy    string   `json:"startedBy"`
		Participants []string `json:"participants"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	rec, err := c.recordings.Save(ctx.Request.Context(), service.SaveRecordingInput{
		RoomID:       req.RoomID,
		Filename:     req.Filename,
		Base64:       req.Base64,
		DurationSec:  req.Duration,
		StartedBy:    req.StartedBy,
		Participants: req.Participants,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"ok": true, "path": rec.Path, "recording": converter.RecordingToApi(rec)})
}

func (c *RecordingController) List(ctx *gin.Context) {
	roomID, ok := parseRoomID(ctx.Query("roomId"))
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}

	recs, err := c.recordings.List(ctx.Request.Context(), roomID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"recordings": converter.RecordingsToApi(recs)})
}

func (c *RecordingController) File(ctx *gin.Context) {
	path, err := c.recordings.Open(ctx.Param("name"))
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "public, max-age=31536000, immutable")
	ctx.File(path)
}
