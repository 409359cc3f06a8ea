package series

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	seriesService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
		Key:        &key,
		LoadBooks:  true,
		LoadAuthor: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) listBooks(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
		Key:       &key,
		LoadBooks: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"books": series.Books}))
}

func (h *handler) complete(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	series, err = h.seriesService.CompleteSeries(ctx, series)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) cleanup(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	series, err = h.seriesService.CleanupSeries(ctx, series)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) union(c echo.Context) error {
	ctx := c.Request().Context()

	params := UnionSeriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series, err := h.seriesService.UnionSeries(ctx, params.SeriesKeys[0], params.SeriesKeys[1])
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) deleteSeries(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	params := DeleteSeriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &key})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.seriesService.DeleteSeries(ctx, series, DeleteSeriesOptions{DeleteFiles: params.Files}); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
