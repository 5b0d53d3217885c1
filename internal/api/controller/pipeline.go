package controller

import (
	"net/http"
	"strconv"

	"github.com/coverhub/geostaging/internal/pkg/constants"
	"github.com/coverhub/geostaging/internal/service/commit"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (c *Controller) GetPipelineStatus(ctx echo.Context) error {
	pipelineStatus, err := c.statusService.Status(ctx.Request().Context())
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, pipelineStatus)
}

func (c *Controller) GetOperationLog(ctx echo.Context) error {
	limit, err := strconv.Atoi(ctx.QueryParams().Get("limit"))
	if err != nil {
		limit = 0
	}

	entries, err := c.statusService.OperationLog(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, entries)
}

func (c *Controller) GetOperationsByBatch(ctx echo.Context) error {
	entries, err := c.statusService.OperationsByBatch(ctx.Request().Context(), ctx.Param("batch_id"))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, entries)
}

type batchAccepted struct {
	BatchID string `json:"batch_id"`
}

// StartDeltaCheck kicks off a background delta check and returns the batch id
// to follow in the operation log.
func (c *Controller) StartDeltaCheck(ctx echo.Context) error {
	batchID := uuid.NewString()
	if err := c.deltaService.Start(ctx.Request().Context(), batchID); err != nil {
		return err
	}

	return ctx.JSON(http.StatusAccepted, batchAccepted{BatchID: batchID})
}

func (c *Controller) StartGeoSync(ctx echo.Context) error {
	batchID := uuid.NewString()
	if err := c.deltaService.StartGeoSync(ctx.Request().Context(), batchID); err != nil {
		return err
	}

	return ctx.JSON(http.StatusAccepted, batchAccepted{BatchID: batchID})
}

func (c *Controller) StartAiImport(ctx echo.Context) error {
	batchID := uuid.NewString()
	if err := c.discoveryService.StartAiImport(ctx.Request().Context(), batchID); err != nil {
		return err
	}

	return ctx.JSON(http.StatusAccepted, batchAccepted{BatchID: batchID})
}

type commitRequest struct {
	CityIDs []int64 `json:"city_ids" validate:"required,min=1"`
}

func (c *Controller) StartCommit(ctx echo.Context) error {
	var req commitRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}

	handle, err := c.commitService.Commit(ctx.Request().Context(), req.CityIDs)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusAccepted, batchAccepted{BatchID: handle.BatchID})
}

type commitProgressResponse struct {
	BatchID  string           `json:"batch_id"`
	Finished bool             `json:"finished"`
	Progress *commit.Progress `json:"progress,omitempty"`
	Result   *commit.Result   `json:"result,omitempty"`
}

// GetCommitProgress reports where a commit batch stands. It stays available
// after completion so a reconnecting caller can still fetch the outcome.
func (c *Controller) GetCommitProgress(ctx echo.Context) error {
	handle, ok := c.commitService.Handle(ctx.Param("batch_id"))
	if !ok {
		return constants.ErrDBNotFound
	}

	resp := commitProgressResponse{
		BatchID:  handle.BatchID,
		Progress: handle.Last(),
	}
	if result := handle.Result(); result != nil {
		resp.Finished = true
		resp.Result = result
	}

	return ctx.JSON(http.StatusOK, resp)
}
