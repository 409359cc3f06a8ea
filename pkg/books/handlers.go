package books

import (
	"context"
	"net/http"

	"github.com/foliarr/foliarr/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Retagger re-places a book's already-downloaded files after a metadata
// change. Implemented by the importer; injected here to keep the dependency
// one-way.
type Retagger interface {
	Retag(ctx context.Context, book *models.Book, audio bool) error
}

type handler struct {
	bookService *Service
	retagger    Retagger
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{Key: &key, LoadRelations: true})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	columns := []string{}
	if params.Name != nil {
		book.Name = *params.Name
		columns = append(columns, "name")
	}
	if params.Position != nil {
		book.Position = params.Position
		columns = append(columns, "position")
	}
	if params.SeriesKey != nil {
		if *params.SeriesKey == "" {
			book.SeriesKey = nil
		} else {
			book.SeriesKey = params.SeriesKey
		}
		columns = append(columns, "series_key")
	}
	if params.Blocked != nil {
		book.Blocked = *params.Blocked
		columns = append(columns, "blocked")
	}

	if len(columns) > 0 {
		if err := h.bookService.UpdateBook(ctx, book, columns...); err != nil {
			return errors.WithStack(err)
		}
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) deleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	params := DeleteBookQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.bookService.DeleteBook(ctx, book, DeleteBookOptions{
		Block:       params.Block,
		DeleteFiles: params.Files,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) deleteFiles(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	params := DeleteBookFilesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.bookService.DeleteBookFiles(ctx, book, params.Audio); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) alternativeTitles(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{Key: &key, LoadRelations: true})
	if err != nil {
		return errors.WithStack(err)
	}

	alts, err := h.bookService.AlternativeTitles(ctx, book)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"titles": alts}))
}

func (h *handler) listFiles(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	files, err := h.bookService.ListFiles(book)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"files": files}))
}

func (h *handler) retag(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	params := RetagBookQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{Key: &key, LoadRelations: true})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.retagger.Retag(ctx, book, params.Audio); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}
