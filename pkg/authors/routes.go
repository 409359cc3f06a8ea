package authors

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, authorService *Service) {
	h := &handler{
		authorService: authorService,
	}

	e.GET("/authors", h.list)
	e.GET("/authors/search", h.search)
	e.GET("/authors/:key", h.retrieve)
	e.GET("/authors/:key/series", h.listSeries)
	e.GET("/authors/:key/books", h.listBooks)
	e.POST("/authors/series", h.createSeriesAuthor)
	e.POST("/authors/:key", h.importAuthor)
	e.POST("/authors/:key/complete", h.complete)
	e.DELETE("/authors/:key", h.deleteAuthor)
}
