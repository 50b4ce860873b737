package candidate

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/lshigami/examgate/internal/apperr"
	"github.com/lshigami/examgate/internal/dto"
	"github.com/lshigami/examgate/internal/model"
	"github.com/lshigami/examgate/internal/service"
	"github.com/rs/zerolog/log"
)

type CandidateController struct {
	pinService     service.PinService
	attemptService service.AttemptService
	answerService  service.AnswerService
	eventService   service.EventService
	submission     service.SubmissionService
}

func NewCandidateController(
	ps service.PinService,
	ats service.AttemptService,
	ans service.AnswerService,
	es service.EventService,
	ss service.SubmissionService,
) *CandidateController {
	return &CandidateController{
		pinService:     ps,
		attemptService: ats,
		answerService:  ans,
		eventService:   es,
		submission:     ss,
	}
}

func (c *CandidateController) RegisterRoutes(router *gin.Engine) {
	apiV1 := router.Group("/api/v1")
	{
		pins := apiV1.Group("/pins")
		pins.POST("/validate", c.ValidatePin)

		attempts := apiV1.Group("/attempts")
		attempts.POST("/resume", c.ResumeAttempt)
		attempts.POST("/:attempt_id/answers", c.SaveAnswer)
		attempts.POST("/:attempt_id/submit", c.SubmitAttempt)
		attempts.POST("/:attempt_id/integrity", c.RecordIntegrityEvents)
	}
}

// ValidatePin godoc
// @Summary Validate an exam PIN and optionally start an attempt
// @Description Checks the PIN against the exam, consumes one use on success. With start_attempt=true also creates the attempt (candidate_name required).
// @Tags Candidate
// @Accept json
// @Produce json
// @Param body body dto.ValidatePinRequest true "PIN, exam and candidate details"
// @Success 200 {object} dto.ValidatePinResponse
// @Failure 400 {object} dto.ErrorResponse "Validation error, exam not published or has no questions"
// @Failure 401 {object} dto.ErrorResponse "Invalid PIN"
// @Failure 429 {object} dto.ErrorResponse "Rate limited"
// @Router /pins/validate [post]
func (c *CandidateController) ValidatePin(ctx *gin.Context) {
	var req dto.ValidatePinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}
	if req.StartAttempt && req.CandidateName == "" {
		respondError(ctx, apperr.New(apperr.CodeValidation, "candidate_name is required to start an attempt"))
		return
	}

	client := service.ClientInfo{IP: ctx.ClientIP(), UserAgent: ctx.Request.UserAgent()}
	validation, err := c.pinService.Validate(req.Pin, req.ExamID, client, req.CandidateIdentifier)
	if err != nil {
		respondError(ctx, err)
		return
	}

	resp := dto.ValidatePinResponse{
		Valid:         true,
		PinID:         validation.Pin.ID,
		InstitutionID: validation.Pin.InstitutionID,
		UsesRemaining: validation.UsesRemaining,
	}

	if req.StartAttempt {
		started, err := c.attemptService.Start(service.StartAttemptInput{
			Pin:                 validation.Pin,
			CandidateName:       req.CandidateName,
			CandidateIdentifier: req.CandidateIdentifier,
			Metadata:            req.Metadata,
		})
		if err != nil {
			respondError(ctx, err)
			return
		}
		attemptResp := toAttemptResponse(started.Attempt)
		resp.Attempt = &attemptResp
	}

	ctx.JSON(http.StatusOK, resp)
}

// ResumeAttempt godoc
// @Summary Resume an in-progress attempt
// @Description Verifies the PIN (without consuming a use) and finds the unique resumable attempt matching the supplied candidate fields.
// @Tags Candidate
// @Accept json
// @Produce json
// @Param body body dto.ResumeAttemptRequest true "PIN, exam and candidate details"
// @Success 200 {object} dto.ResumeAttemptResponse
// @Failure 401 {object} dto.ErrorResponse "Invalid PIN"
// @Failure 404 {object} dto.ErrorResponse "No matching attempt"
// @Failure 409 {object} dto.ErrorResponse "Ambiguous match or attempt expired"
// @Router /attempts/resume [post]
func (c *CandidateController) ResumeAttempt(ctx *gin.Context) {
	var req dto.ResumeAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	client := service.ClientInfo{IP: ctx.ClientIP(), UserAgent: ctx.Request.UserAgent()}
	pin, err := c.pinService.VerifyForResume(req.Pin, req.ExamID, client)
	if err != nil {
		respondError(ctx, err)
		return
	}

	resumed, err := c.attemptService.Resume(service.ResumeInput{
		Pin:                 pin,
		CandidateName:       req.CandidateName,
		CandidateIdentifier: req.CandidateIdentifier,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ResumeAttemptResponse{
		Attempt:       toAttemptResponse(resumed.Attempt),
		CandidateName: resumed.Candidate.Name,
	})
}

// SaveAnswer godoc
// @Summary Save one answer for an in-progress attempt
// @Description Upserts the answer for (attempt, question) and appends a revision. A null payload clears the previous answer.
// @Tags Candidate
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param body body dto.SaveAnswerRequest true "Question id and payload"
// @Success 200 {object} dto.SaveAnswerResponse
// @Failure 400 {object} dto.ErrorResponse "Malformed payload or attempt not editable"
// @Failure 404 {object} dto.ErrorResponse "Unknown attempt"
// @Failure 409 {object} dto.ErrorResponse "Attempt expired (auto-submit performed)"
// @Router /attempts/{attempt_id}/answers [post]
func (c *CandidateController) SaveAnswer(ctx *gin.Context) {
	attemptID, ok := attemptIDParam(ctx)
	if !ok {
		return
	}
	var req dto.SaveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	saved, err := c.answerService.Save(service.SaveAnswerInput{
		AttemptID:            attemptID,
		ExamID:               req.ExamID,
		QuestionID:           req.QuestionID,
		Payload:              req.Payload,
		CurrentQuestionIndex: req.CurrentQuestionIndex,
		IsFinal:              req.IsFinal,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.SaveAnswerResponse{
		QuestionID: saved.Answer.QuestionID,
		Version:    saved.Answer.Version,
		IsFinal:    saved.Answer.IsFinal,
		SavedAt:    time.Now(),
	})
}

// SubmitAttempt godoc
// @Summary Submit an attempt for grading
// @Description Finalizes the attempt through the submitting lock. A racing duplicate call gets SUBMIT_IN_PROGRESS, a finished attempt gets ATTEMPT_NOT_EDITABLE.
// @Tags Candidate
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.SubmitAttemptResponse
// @Failure 400 {object} dto.ErrorResponse "Attempt not editable"
// @Failure 404 {object} dto.ErrorResponse "Unknown attempt"
// @Failure 409 {object} dto.ErrorResponse "Submit already in progress"
// @Router /attempts/{attempt_id}/submit [post]
func (c *CandidateController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := attemptIDParam(ctx)
	if !ok {
		return
	}

	result, status, err := c.submission.Submit(attemptID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.SubmitAttemptResponse{
		Status: string(status),
		Result: toResultResponse(result),
	})
}

// RecordIntegrityEvents godoc
// @Summary Record a batch of behavioral integrity events
// @Description Accepts up to 50 events. Unknown event types are dropped silently; a batch with nothing recognized is rejected.
// @Tags Candidate
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param body body dto.RecordIntegrityEventsRequest true "Event batch"
// @Success 200 {object} dto.RecordIntegrityEventsResponse
// @Failure 400 {object} dto.ErrorResponse "Empty or fully-unrecognized batch, or attempt not editable"
// @Failure 404 {object} dto.ErrorResponse "Unknown attempt"
// @Failure 409 {object} dto.ErrorResponse "Attempt expired"
// @Router /attempts/{attempt_id}/integrity [post]
func (c *CandidateController) RecordIntegrityEvents(ctx *gin.Context) {
	attemptID, ok := attemptIDParam(ctx)
	if !ok {
		return
	}
	var req dto.RecordIntegrityEventsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBindError(ctx, err)
		return
	}

	events := make([]service.EventInput, len(req.Events))
	for i, e := range req.Events {
		events[i] = service.EventInput{
			Type:       e.Type,
			Severity:   e.Severity,
			OccurredAt: e.OccurredAt,
			Metadata:   e.Metadata,
		}
	}

	accepted, dropped, err := c.eventService.Record(attemptID, events)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.RecordIntegrityEventsResponse{Accepted: accepted, Dropped: dropped})
}

func attemptIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("attempt_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    string(apperr.CodeValidation),
			Message: "attempt_id must be a UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

func toAttemptResponse(attempt *model.Attempt) dto.AttemptResponse {
	var resp dto.AttemptResponse
	if err := copier.Copy(&resp, attempt); err != nil {
		log.Error().Err(err).Msg("Failed to map attempt to response")
	}
	var order []uuid.UUID
	if err := json.Unmarshal(attempt.QuestionOrder, &order); err == nil {
		resp.QuestionOrder = order
	}
	resp.Status = string(attempt.Status)
	return resp
}

func toResultResponse(result *model.Result) dto.ResultResponse {
	var resp dto.ResultResponse
	if err := copier.Copy(&resp, result); err != nil {
		log.Error().Err(err).Msg("Failed to map result to response")
	}
	resp.IntegrityReasons = json.RawMessage(result.IntegrityReasons)
	resp.SubjectBreakdown = json.RawMessage(result.SubjectBreakdown)
	return resp
}

// respondError maps a service error to the stable wire contract. Anything
// without an explicit code is an internal failure and keeps its details out
// of the response body.
func respondError(ctx *gin.Context, err error) {
	if ae, ok := apperr.As(err); ok {
		status := ae.HTTPStatus()
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Request failed")
		}
		ctx.JSON(status, dto.ErrorResponse{
			Code:    string(ae.Code),
			Message: ae.Message,
			Details: ae.Details,
		})
		return
	}
	log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Request failed")
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
		Code:    string(apperr.CodeInternal),
		Message: "internal error",
	})
}

func respondBindError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Code:    string(apperr.CodeValidation),
		Message: err.Error(),
	})
}
