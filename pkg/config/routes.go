package config

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the settings endpoints.
func RegisterRoutes(e *echo.Echo, configService *Service, restarter JobRestarter) {
	h := &handler{configService: configService, restarter: restarter}

	g := e.Group("/settings")
	g.GET("", h.retrieve)
	g.PATCH("", h.update)
}
