package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

// JobRestarter relaunches a periodic task so a changed interval takes effect
// immediately instead of after the current sleep.
type JobRestarter interface {
	Restart(name string)
}

type handler struct {
	configService *Service
	restarter     JobRestarter
}

func (h *handler) retrieve(c echo.Context) error {
	userConfig := h.configService.UserConfig()
	return errors.WithStack(c.JSON(http.StatusOK, userConfig))
}

func (h *handler) update(c echo.Context) error {
	params := UpdateSettingsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	userConfig := h.configService.UserConfig()
	prev := userConfig

	// Apply only the fields present in the payload.
	data, err := json.Marshal(params)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := json.Unmarshal(data, &userConfig); err != nil {
		return errors.WithStack(err)
	}

	err = h.configService.UpdateUserConfig(&userConfig, UpdateUserConfigOptions{UpdateFile: true})
	if err != nil {
		return errors.WithStack(err)
	}

	if h.restarter != nil {
		log := logger.FromContext(c.Request().Context())
		for _, task := range []string{"import", "rescan", "reimport"} {
			if prev.JobInterval(task) != userConfig.JobInterval(task) {
				log.Info("restarting job after interval change", logger.Data{"task": task})
				h.restarter.Restart(task)
			}
		}
	}

	userConfig = h.configService.UserConfig()
	return errors.WithStack(c.JSON(http.StatusOK, userConfig))
}
