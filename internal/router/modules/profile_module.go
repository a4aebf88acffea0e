package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/collabhub/collabhub/internal/interface/http"
	"github.com/collabhub/collabhub/internal/interface/middleware"
)

// ProfileModule wires profile routes.
// Public: GET /api/profiles/search, GET /api/profiles/:username
// Protected: /api/profile/me (GET, PUT, DELETE), PATCH username and email,
// POST avatar
type ProfileModule struct {
	Handler  *handlers.ProfileHandler
	Sessions middleware.SessionValidator
	Redis    *redis.Client
}

func NewProfileModule(h *handlers.ProfileHandler, sessions middleware.SessionValidator, rdb *redis.Client) *ProfileModule {
	return &ProfileModule{Handler: h, Sessions: sessions, Redis: rdb}
}

func (m *ProfileModule) Register(rg *gin.RouterGroup) {
	searchLimiter := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/profiles/search", searchLimiter, m.Handler.Search)
	rg.GET("/profiles/:username", searchLimiter, m.Handler.Public)

	me := rg.Group("/profile/me")
	me.Use(middleware.Auth(m.Sessions))
	me.Use(
		middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		me.GET("", m.Handler.Me)
		me.PUT("", m.Handler.Update)
		me.DELETE("", m.Handler.DeleteAccount)
		me.PATCH("/username", m.Handler.ChangeUsername)
		me.PATCH("/email", m.Handler.ChangeEmail)
		me.POST("/avatar", middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByUserID(), nil), m.Handler.UploadAvatar)
	}
}
