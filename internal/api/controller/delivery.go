package controller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func (c *Controller) CheckDelivery(ctx echo.Context) error {
	lon, err := strconv.ParseFloat(ctx.QueryParams().Get("lon"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lon")
	}
	lat, err := strconv.ParseFloat(ctx.QueryParams().Get("lat"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lat")
	}

	result, err := c.deliveryService.Check(ctx.Request().Context(), lon, lat)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, result)
}
