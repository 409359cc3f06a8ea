package series

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, seriesService *Service) {
	h := &handler{
		seriesService: seriesService,
	}

	e.POST("/series/union", h.union)
	e.GET("/series/:key", h.retrieve)
	e.GET("/series/:key/books", h.listBooks)
	e.POST("/series/:key/complete", h.complete)
	e.POST("/series/:key/cleanup", h.cleanup)
	e.DELETE("/series/:key", h.deleteSeries)
}
