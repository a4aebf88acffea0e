package router

import (
	"github.com/collabhub/collabhub/internal/container"
	handlers "github.com/collabhub/collabhub/internal/interface/http"
	"github.com/collabhub/collabhub/internal/router/modules"
)

// InitModules builds the handlers from a started container and registers
// every module. Call once during startup.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config

	authHandler := handlers.NewAuthHandler(c.Auth, c.Logger, cfg.CookieDomain, cfg.CookieSecure, cfg.FrontendURL)
	profileHandler := handlers.NewProfileHandler(c.Profiles, c.Logger, cfg.CookieDomain, cfg.CookieSecure)

	r.Add(modules.NewAuthModule(authHandler, c.Sessions, c.Redis))
	r.Add(modules.NewProfileModule(profileHandler, c.Sessions, c.Redis))
	if cfg.MetricsEnabled {
		r.AddRoot(modules.NewMetricsModule())
	}
}
