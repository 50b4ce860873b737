package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/dto"
	"github.com/lshigami/examgate/internal/service"
	"github.com/rs/zerolog/log"
)

const defaultSweepLimit = 200

// OpsController exposes the out-of-band operational endpoints: result
// reprocessing and the expiry sweep for attempts nobody touched again.
type OpsController struct {
	submission service.SubmissionService
}

func NewOpsController(ss service.SubmissionService) *OpsController {
	return &OpsController{submission: ss}
}

func (c *OpsController) RegisterRoutes(router *gin.Engine) {
	opsGroup := router.Group("/ops")
	{
		opsGroup.POST("/results/:attempt_id/reprocess", c.ReprocessResult)
		opsGroup.POST("/attempts/sweep-expired", c.SweepExpired)
	}
}

// ReprocessResult godoc
// @Summary Regrade a finalized attempt
// @Description Re-runs scoring and integrity evaluation for a finalized attempt and replaces its Result row. Analytics are not folded twice.
// @Tags Ops
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.ResultResponse
// @Failure 400 {object} dto.ErrorResponse "Attempt not finalized yet"
// @Failure 404 {object} dto.ErrorResponse "Unknown attempt"
// @Router /ops/results/{attempt_id}/reprocess [post]
func (c *OpsController) ReprocessResult(ctx *gin.Context) {
	attemptID, err := uuid.Parse(ctx.Param("attempt_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    string(apperr.CodeValidation),
			Message: "attempt_id must be a UUID",
		})
		return
	}

	result, err := c.submission.Reprocess(attemptID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	var resp dto.ResultResponse
	if copyErr := copier.Copy(&resp, result); copyErr != nil {
		log.Error().Err(copyErr).Msg("Failed to map result to response")
	}
	resp.IntegrityReasons = []byte(result.IntegrityReasons)
	resp.SubjectBreakdown = []byte(result.SubjectBreakdown)
	ctx.JSON(http.StatusOK, resp)
}

// SweepExpired godoc
// @Summary Finalize overdue in-progress attempts
// @Description Auto-submits overdue attempts that have saved answers and marks untouched ones expired.
// @Tags Ops
// @Accept json
// @Produce json
// @Param body body dto.SweepExpiredRequest false "Optional batch limit"
// @Success 200 {object} dto.SweepExpiredResponse
// @Router /ops/attempts/sweep-expired [post]
func (c *OpsController) SweepExpired(ctx *gin.Context) {
	var req dto.SweepExpiredRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:    string(apperr.CodeValidation),
				Message: err.Error(),
			})
			return
		}
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultSweepLimit
	}

	autoSubmitted, expired, err := c.submission.SweepExpired(limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	log.Info().Int("auto_submitted", autoSubmitted).Int("expired", expired).Msg("Expiry sweep finished")
	ctx.JSON(http.StatusOK, dto.SweepExpiredResponse{AutoSubmitted: autoSubmitted, Expired: expired})
}

func respondError(ctx *gin.Context, err error) {
	if ae, ok := apperr.As(err); ok {
		ctx.JSON(ae.HTTPStatus(), dto.ErrorResponse{
			Code:    string(ae.Code),
			Message: ae.Message,
			Details: ae.Details,
		})
		return
	}
	log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Ops request failed")
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Code:    string(apperr.CodeInternal),
		Message: "internal error",
	})
}
