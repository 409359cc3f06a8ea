package downloads

import (
	"net/http"

	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/books"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/indexer"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	downloadService *Service
	bookService     *books.Service
	activityService *activities.Service
}

func (h *handler) downloadBook(c echo.Context) error {
	ctx := c.Request().Context()

	params := DownloadQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.retrieveBook(c)
	if err != nil {
		return errors.WithStack(err)
	}

	activity, err := h.downloadService.DownloadBook(ctx, book, params.Audio)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, activity))
}

func (h *handler) downloadAuthor(c echo.Context) error {
	ctx := c.Request().Context()

	params := DownloadQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	key := c.Param("key")
	if key == "" {
		return errcodes.NotFound("Author")
	}

	result, err := h.downloadService.DownloadAuthor(ctx, key, params.Audio)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

func (h *handler) downloadSeries(c echo.Context) error {
	ctx := c.Request().Context()

	params := DownloadQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	key := c.Param("key")
	if key == "" {
		return errcodes.NotFound("Series")
	}

	result, err := h.downloadService.DownloadSeries(ctx, key, params.Audio)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

func (h *handler) manualSearch(c echo.Context) error {
	ctx := c.Request().Context()

	params := ManualSearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.retrieveBook(c)
	if err != nil {
		return errors.WithStack(err)
	}

	page, err := h.downloadService.ManualSearch(ctx, book, params.Page, params.Audio)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, page))
}

func (h *handler) grab(c echo.Context) error {
	ctx := c.Request().Context()

	params := GrabPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.retrieveBook(c)
	if err != nil {
		return errors.WithStack(err)
	}

	activity, err := h.downloadService.GrabRelease(ctx, book, params.Audio, &indexer.Release{
		Name: params.Name,
		Link: params.Link,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, activity))
}

func (h *handler) listActivity(c echo.Context) error {
	ctx := c.Request().Context()

	params := activities.ListActivitiesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	views, total, err := h.downloadService.ListActivity(ctx, activities.ListActivitiesOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		BookKey:  params.BookKey,
		Statuses: params.Statuses,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"activities": views,
		"total":      total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if id == "" {
		return errcodes.NotFound("Activity")
	}

	activity, err := h.activityService.RetrieveActivity(ctx, activities.RetrieveActivityOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.downloadService.CancelActivity(ctx, activity); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, activity))
}

func (h *handler) retrieveBook(c echo.Context) (*models.Book, error) {
	key := c.Param("key")
	if key == "" {
		return nil, errcodes.NotFound("Book")
	}
	return h.bookService.RetrieveBook(c.Request().Context(), books.RetrieveBookOptions{
		Key:           &key,
		LoadRelations: true,
	})
}
