// Package jobs exposes manual control over the periodic tasks.
package jobs

import (
	"net/http"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

var taskNames = []string{"import", "rescan", "reimport"}

type handler struct {
	restarter config.JobRestarter
}

func (h *handler) restart(c echo.Context) error {
	name := c.Param("name")

	known := false
	for _, task := range taskNames {
		if task == name {
			known = true
			break
		}
	}
	if !known {
		return errcodes.NotFound("Job")
	}

	log := logger.FromContext(c.Request().Context())
	log.Info("restarting job", logger.Data{"task": name})
	h.restarter.Restart(name)

	return errors.WithStack(c.JSON(http.StatusOK, map[string]any{"restarted": name}))
}
