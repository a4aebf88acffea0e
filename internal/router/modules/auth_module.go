package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/collabhub/collabhub/internal/interface/http"
	"github.com/collabhub/collabhub/internal/interface/middleware"
)

// AuthModule wires sign-in routes.
// Public: GET /api/auth/github/login, GET /api/auth/github/callback,
// POST /api/auth/signup, POST /api/auth/signin, POST /api/auth/refresh
// Protected: POST /api/auth/logout
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Sessions middleware.SessionValidator
	Redis    *redis.Client
}

func NewAuthModule(h *handlers.AuthHandler, sessions middleware.SessionValidator, rdb *redis.Client) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions, Redis: rdb}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	oauthLimiter := middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	signupLimiter := middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	signinLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIP(), nil)

	g := rg.Group("/auth")
	g.GET("/github/login", oauthLimiter, m.Handler.GitHubLogin)
	g.GET("/github/callback", oauthLimiter, m.Handler.GitHubCallback)
	g.POST("/signup", signupLimiter, m.Handler.SignUp)
	g.POST("/signin", signinLimiter, m.Handler.SignIn)
	g.POST("/refresh", refreshLimiter, m.Handler.Refresh)

	auth := g.Group("/")
	auth.Use(middleware.Auth(m.Sessions))
	{
		auth.POST("/logout", m.Handler.Logout)
	}
}
