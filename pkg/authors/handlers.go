package authors

import (
	"database/sql"
	"net/http"

	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	authorService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"authors": authors,
		"total":   total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		Key:        &key,
		LoadSeries: true,
		LoadBooks:  true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) listSeries(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	if _, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{Key: &key}); err != nil {
		return errors.WithStack(err)
	}

	seriesList, err := h.authorService.ListAuthorSeries(ctx, key)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"series": seriesList}))
}

func (h *handler) listBooks(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	if _, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{Key: &key}); err != nil {
		return errors.WithStack(err)
	}

	books, err := h.authorService.ListAuthorBooks(ctx, key, false)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"books": books}))
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	refs, err := h.authorService.scraper.SearchAuthors(ctx, params.Query)
	if err != nil {
		return errcodes.ScrapeFailure(err.Error())
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"results": refs}))
}

func (h *handler) importAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	params := ImportAuthorQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.ImportAuthor(ctx, key, params.Override)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) complete(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	author, err = h.authorService.CompleteAuthor(ctx, author)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) createSeriesAuthor(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateSeriesAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series := &models.Series{}
	err := h.authorService.db.NewSelect().
		Model(series).
		Where("s.key = ?", params.SeriesKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Series")
		}
		return errors.WithStack(err)
	}

	author, err := h.authorService.MakeAuthorFromSeries(ctx, series)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) deleteAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	params := DeleteAuthorQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.authorService.DeleteAuthor(ctx, author, DeleteAuthorOptions{DeleteFiles: params.Files}); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
