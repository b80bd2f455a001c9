package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/live/internal/adapters/signal"
	"github.com/skillswap/live/internal/config"
)

// IdentityMiddleware resolves the caller. The upstream REST layer
// authenticates users and forwards the identity in X-User-ID; local dev
// falls back to a cookie-bound identity so the duplex channel still works.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-User-ID")
		if uid == "" {
			s := sessions.Default(c)
			if v, ok := s.Get("uid").(string); ok {
				uid = v
			}
		}
		if uid == "" {
			uid = uuid.NewString()
			s := sessions.Default(c)
			s.Set("uid", uid)
			_ = s.Save()
		}
		c.Set("user_id", uid)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, h *Handlers, ws *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SkillswapLive", store))
	r.Use(IdentityMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(200, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	ls := api.Group("/live-sessions")
	ls.POST("/initialize", h.Initialize)
	ls.POST("/send-invitation", h.SendInvitation)
	ls.POST("/accept-invitation/:invitationId", h.AcceptInvitation)
	ls.POST("/decline-invitation/:invitationId", h.DeclineInvitation)
	ls.GET("/verify/:sessionId/:token", h.VerifyToken)
	ls.GET("/:sessionId", h.GetSession)
	ls.POST("/:sessionId/join", h.Join)
	ls.POST("/:sessionId/end", h.End)
	ls.POST("/:sessionId/toggle-audio", h.ToggleAudio)
	ls.POST("/:sessionId/toggle-video", h.ToggleVideo)
	ls.POST("/:sessionId/start-screen-share", h.StartScreenShare)
	ls.POST("/:sessionId/stop-screen-share", h.StopScreenShare)
	ls.POST("/:sessionId/sync-editor", h.SyncEditor)
	ls.POST("/:sessionId/log-chat", h.LogChat)

	api.GET("/ws", func(c *gin.Context) {
		ws.HandleWS(ctx, c)
	})

	return r
}
