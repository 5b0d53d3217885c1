package controller

import (
	"net/http"
	"strconv"

	"github.com/coverhub/geostaging/internal/domain"
	"github.com/labstack/echo/v4"
)

func (c *Controller) ListStagingCities(ctx echo.Context) error {
	status := ctx.QueryParams().Get("status")
	if status == "" {
		status = string(domain.StagingStatusPending)
	}

	cities, err := c.stagingService.ListByStatus(ctx.Request().Context(), domain.StagingStatus(status))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, cities)
}

// CreateStagingCity stages a manually authored candidate, same shape the
// automated imports produce.
func (c *Controller) CreateStagingCity(ctx echo.Context) error {
	var candidate domain.StagingCity
	if err := ctx.Bind(&candidate); err != nil {
		return err
	}
	if candidate.ExternalID == "" || candidate.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "external_id and name are required")
	}

	candidate.Status = domain.StagingStatusPending
	if candidate.Source == "" {
		candidate.Source = "manual"
	}

	staged, err := c.stagingService.CreateStagingCity(ctx.Request().Context(), &candidate)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, staged)
}

func (c *Controller) ApproveStagingCity(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid staging city id")
	}

	if err = c.stagingService.Approve(ctx.Request().Context(), id); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) RejectStagingCity(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid staging city id")
	}

	if err = c.stagingService.Reject(ctx.Request().Context(), id); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}
