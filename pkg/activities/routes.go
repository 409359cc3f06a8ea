package activities

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the activity read endpoints. Cancellation lives
// with the downloads routes since it talks to the downloader.
func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	h := &handler{
		activityService: NewService(db),
	}

	e.GET("/activities", h.list)
	e.GET("/activities/:id", h.retrieve)
}
