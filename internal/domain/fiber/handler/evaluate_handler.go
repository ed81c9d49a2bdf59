package handler

import (
	"errors"
	"time"

	"github.com/arkanata/talentsift/internal/dto"
	"github.com/arkanata/talentsift/internal/middleware"
	"github.com/arkanata/talentsift/internal/response"
	"github.com/arkanata/talentsift/internal/scoring"
	"github.com/arkanata/talentsift/internal/usecase"
	"github.com/arkanata/talentsift/internal/util"
	"github.com/gofiber/fiber/v2"
)

type EvaluateHandler struct {
	uc     *usecase.EvaluationUsecase
	health *scoring.HealthMonitor
}

func NewEvaluateHandler(uc *usecase.EvaluationUsecase, health *scoring.HealthMonitor) *EvaluateHandler {
	return &EvaluateHandler{uc: uc, health: health}
}

func (h *EvaluateHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/evaluations", middleware.RateLimiter(10, time.Minute), h.Submit)
	app.Post("/evaluations/batch", middleware.RateLimiter(2, time.Minute), h.SubmitBatch)
	app.Get("/evaluations", h.List)
	app.Get("/evaluations/:id", h.Get)
	app.Get("/tasks/:id", h.TaskStatus)
	app.Get("/queue/stats", h.QueueStats)
	app.Get("/scorer/health", h.ScorerHealth)
	app.Get("/candidates/:id/job-matches", h.JobMatches)
	app.Post("/jobs/refresh-embeddings", h.RefreshEmbeddings)
}

type submitRequest struct {
	CandidateID string           `json:"candidate_id"`
	JobID       string           `json:"job_id"`
	Weights     *scoring.Weights `json:"weights"`
	MaxRetries  int              `json:"max_retries"`
}

type submitBatchRequest struct {
	CandidateIDs []string         `json:"candidate_ids"`
	JobID        string           `json:"job_id"`
	Weights      *scoring.Weights `json:"weights"`
	MaxRetries   int              `json:"max_retries"`
}

func (h *EvaluateHandler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid request body",
		}, err)
	}

	id, err := h.uc.Submit(c.Context(), req.CandidateID, req.JobID, req.Weights, req.MaxRetries)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusBadRequest,
				Message: err.Error(),
			}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to submit evaluation",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusAccepted,
		Message: "Success submit evaluation",
		Data:    fiber.Map{"task_id": id, "status": "pending"},
	})
}

func (h *EvaluateHandler) SubmitBatch(c *fiber.Ctx) error {
	var req submitBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid request body",
		}, err)
	}

	id, err := h.uc.SubmitBatch(c.Context(), req.CandidateIDs, req.JobID, req.Weights, req.MaxRetries)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusBadRequest,
				Message: err.Error(),
			}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to submit batch evaluation",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusAccepted,
		Message: "Success submit batch evaluation",
		Data:    fiber.Map{"task_id": id, "status": "pending", "count": len(req.CandidateIDs)},
	})
}

func (h *EvaluateHandler) TaskStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	task, ok := h.uc.GetTask(id)
	if !ok {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "task not found",
		})
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get task status",
		Data:    dto.TaskStatusFromTask(task),
	})
}

func (h *EvaluateHandler) QueueStats(c *fiber.Ctx) error {
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get queue stats",
		Data:    h.uc.QueueStats(),
	})
}

func (h *EvaluateHandler) ScorerHealth(c *fiber.Ctx) error {
	if c.QueryBool("force") {
		h.health.ForceCheck(c.Context())
	}
	healthy := h.health.IsHealthy(c.Context())
	lastChecked, probes := h.health.LastChecked()
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get scorer health",
		Data: fiber.Map{
			"healthy":      healthy,
			"last_checked": lastChecked,
			"probe_count":  probes,
		},
	})
}

func (h *EvaluateHandler) Get(c *fiber.Ctx) error {
	ev, err := h.uc.GetEvaluation(c.Context(), c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "evaluation not found",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get evaluation",
		Data:    dto.EvaluationFromModel(ev),
	})
}

func (h *EvaluateHandler) List(c *fiber.Ctx) error {
	jobID := c.Query("job_id")
	if jobID == "" {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "job_id query parameter is required",
		})
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	items, total, err := h.uc.ListEvaluationsByJob(c.Context(), jobID, offset, pageSize)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to list evaluations",
		}, err)
	}

	data := make([]dto.EvaluationDTO, 0, len(items))
	for i := range items {
		data = append(data, dto.EvaluationFromModel(&items[i]))
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message:    "Success list evaluations",
		Data:       data,
		Pagination: response.NewPagination(page, pageSize, total),
	})
}

func (h *EvaluateHandler) JobMatches(c *fiber.Ctx) error {
	topK := c.QueryInt("top_k", 5)
	jobs, err := h.uc.JobMatches(c.Context(), c.Params("id"), topK)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to find job matches",
		}, err)
	}
	type match struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	data := make([]match, 0, len(jobs))
	for _, j := range jobs {
		data = append(data, match{ID: j.ID.String(), Title: j.Title})
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success find job matches",
		Data:    data,
	})
}

func (h *EvaluateHandler) RefreshEmbeddings(c *fiber.Ctx) error {
	updated, err := h.uc.RefreshJobEmbeddings(c.Context())
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to refresh job embeddings",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success refresh job embeddings",
		Data:    fiber.Map{"updated": updated},
	})
}
