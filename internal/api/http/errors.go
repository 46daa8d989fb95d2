package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/chat_relay/internal/service"
)

func statusFor(err error) int {
	var relayErr *service.RelayError
	if errors.As(err, &relayErr) {
		switch relayErr.Message {
		case service.MsgRoomNotFound, service.MsgRecordingNotFound:
			return http.StatusNotFound
		}
	}

	switch {
	case errors.Is(err, service.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrProtocol):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(statusFor(err), gin.H{"error": service.ClientMessage(err)})
}
