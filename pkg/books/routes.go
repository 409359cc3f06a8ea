package books

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, bookService *Service, retagger Retagger) {
	h := &handler{
		bookService: bookService,
		retagger:    retagger,
	}

	e.GET("/books/:key", h.retrieve)
	e.PATCH("/books/:key", h.update)
	e.DELETE("/books/:key", h.deleteBook)
	e.DELETE("/books/:key/files", h.deleteFiles)
	e.GET("/books/:key/titles", h.alternativeTitles)
	e.GET("/books/:key/files", h.listFiles)
	e.POST("/books/:key/retag", h.retag)
}
