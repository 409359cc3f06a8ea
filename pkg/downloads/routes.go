package downloads

import (
	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/books"
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, downloadService *Service, bookService *books.Service, activityService *activities.Service) {
	h := &handler{
		downloadService: downloadService,
		bookService:     bookService,
		activityService: activityService,
	}

	e.POST("/downloads/books/:key", h.downloadBook)
	e.POST("/downloads/authors/:key", h.downloadAuthor)
	e.POST("/downloads/series/:key", h.downloadSeries)
	e.GET("/downloads/manual/:key", h.manualSearch)
	e.POST("/downloads/manual/:key", h.grab)
	e.GET("/downloads/activity", h.listActivity)
	e.POST("/downloads/activity/:id/cancel", h.cancel)
}
