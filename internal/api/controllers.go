package api

import (
	"net/http"
	"strconv"

	"github.com/gpufanctl/gpufanctl/internal/control"
	"github.com/gpufanctl/gpufanctl/internal/persistence"
	"github.com/labstack/echo/v4"
	"github.com/qdm12/reprint"
)

const defaultHistoryLimit = 100

func registerControllerEndpoints(rest *echo.Echo, pers persistence.Persistence) {
	group := rest.Group("/controller")

	group.GET("/", getControllers)
	group.GET("/:"+urlParamId+"/", getController)
	group.GET("/:"+urlParamId+"/history/", getControllerHistory(pers))
	group.DELETE("/:"+urlParamId+"/history/", deleteControllerHistory(pers))
}

func getControllers(c echo.Context) error {
	data := reprint.This(control.SnapshotMap.Items())
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}

func getController(c echo.Context) error {
	id := c.Param(urlParamId)
	data, exists := control.SnapshotMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	} else {
		return c.JSONPretty(http.StatusOK, data, indentationChar)
	}
}

func getControllerHistory(pers persistence.Persistence) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(urlParamId)
		gpuIndex, err := strconv.Atoi(id)
		if err != nil {
			return returnNotFound(c, id)
		}

		// measurement recording may be disabled entirely
		if pers == nil {
			return c.JSONPretty(http.StatusOK, []persistence.Measurement{}, indentationChar)
		}

		limit := defaultHistoryLimit
		if limitParam := c.QueryParam("limit"); limitParam != "" {
			limit, err = strconv.Atoi(limitParam)
			if err != nil {
				return returnError(c, err)
			}
		}

		measurements, err := pers.LoadMeasurements(gpuIndex, limit)
		if err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, measurements, indentationChar)
	}
}

func deleteControllerHistory(pers persistence.Persistence) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(urlParamId)
		gpuIndex, err := strconv.Atoi(id)
		if err != nil {
			return returnNotFound(c, id)
		}

		if pers == nil {
			return c.NoContent(http.StatusNoContent)
		}

		if err := pers.DeleteMeasurements(gpuIndex); err != nil {
			return returnError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
