package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/immxrtalbeast/chat_relay/internal/domain"
	"github.com/immxrtalbeast/chat_relay/internal/ratelimit"
	"github.com/immxrtalbeast/chat_relay/internal/service"
	"github.com/immxrtalbeast/chat_relay/lib/logger/sl"
)

const identityKey = "identity"

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter browsers use for websocket handshakes.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

func RequireAuth(auth service.Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity, err := auth.Authenticate(bearerToken(ctx.Request))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
			return
		}
		ctx.Set(identityKey, identity)
		ctx.Next()
	}
}

func identityFrom(ctx *gin.Context) (domain.Identity, bool) {
	value, ok := ctx.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}

// RateLimit counts requests per client IP. Limiter failures let the request
// through.
func RateLimit(limiter *ratelimit.Limiter, log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res, err := limiter.Allow(ctx.Request.Context(), ctx.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", sl.Err(err))
			ctx.Next()
			return
		}

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		ctx.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			ctx.Header("Retry-After", strconv.Itoa(int(res.ResetIn.Seconds())+1))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		ctx.Next()
	}
}
