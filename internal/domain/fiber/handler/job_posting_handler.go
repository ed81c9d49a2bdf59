package handler

import (
	"github.com/arkanata/talentsift/internal/model"
	"github.com/arkanata/talentsift/internal/repository"
	"github.com/arkanata/talentsift/internal/util"
	"github.com/gofiber/fiber/v2"
)

type JobPostingHandler struct {
	repo *repository.JobPostingRepository
}

func NewJobPostingHandler(repo *repository.JobPostingRepository) *JobPostingHandler {
	return &JobPostingHandler{repo: repo}
}

func (h *JobPostingHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/jobs", h.Create)
	app.Get("/jobs/:id", h.Get)
	app.Get("/jobs", h.List)
}

func (h *JobPostingHandler) Create(c *fiber.Ctx) error {
	var job model.JobPosting
	if err := c.BodyParser(&job); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid request body",
		}, err)
	}
	if job.Title == "" || job.Description == "" {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "title and description are required",
		})
	}

	if err := h.repo.Create(&job); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to create job posting",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusCreated,
		Message: "Success create job posting",
		Data:    job,
	})
}

func (h *JobPostingHandler) Get(c *fiber.Ctx) error {
	job, err := h.repo.FindByID(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "job posting not found",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get job posting",
		Data:    job,
	})
}

func (h *JobPostingHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	jobs, total, err := h.repo.List((page-1)*pageSize, pageSize)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to list job postings",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success list job postings",
		Data:    jobs,
		Meta:    fiber.Map{"total": total, "page": page, "page_size": pageSize},
	})
}
