package activities

import (
	"net/http"

	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	activityService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListActivitiesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	activities, total, err := h.activityService.ListActivitiesWithTotal(ctx, ListActivitiesOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		BookKey:  params.BookKey,
		Statuses: params.Statuses,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"activities": activities,
		"total":      total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if id == "" {
		return errcodes.NotFound("Activity")
	}

	activity, err := h.activityService.RetrieveActivity(ctx, RetrieveActivityOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, activity))
}
