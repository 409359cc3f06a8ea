package jobs

import (
	"github.com/foliarr/foliarr/pkg/config"
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, restarter config.JobRestarter) {
	h := &handler{restarter: restarter}

	e.POST("/jobs/:name/restart", h.restart)
}
