package handler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arkanata/talentsift/internal/model"
	"github.com/arkanata/talentsift/internal/repository"
	"github.com/arkanata/talentsift/internal/util"
	"github.com/gofiber/fiber/v2"
)

const maxResumeSize = 5 * 1024 * 1024

type CandidateHandler struct {
	repo *repository.CandidateRepository
}

func NewCandidateHandler(repo *repository.CandidateRepository) *CandidateHandler {
	return &CandidateHandler{repo: repo}
}

func (h *CandidateHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/candidates", h.Create)
	app.Get("/candidates/:id", h.Get)
	app.Get("/candidates", h.List)
}

// Create accepts either a JSON body with resume_text inline, or a multipart
// form with a "resume" PDF whose text layer is extracted server-side.
func (h *CandidateHandler) Create(c *fiber.Ctx) error {
	candidate := &model.Candidate{
		FullName: c.FormValue("full_name"),
		Email:    c.FormValue("email"),
	}

	if file, err := c.FormFile("resume"); err == nil {
		if file.Size > maxResumeSize {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusBadRequest,
				Message: "resume file is too large (max 5MB)",
			})
		}
		if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusBadRequest,
				Message: "only PDF resumes are supported",
			})
		}

		savePath := filepath.Join("./uploads/resumes/", file.Filename)
		if err := c.SaveFile(file, savePath); err != nil {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Message: "cannot save resume file",
			}, err)
		}
		defer os.Remove(savePath)

		text, err := util.ExtractPDFText(savePath)
		if err != nil {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusBadRequest,
				Message: "failed to extract resume text",
			}, err)
		}
		candidate.ResumeText = text
	} else {
		var body model.Candidate
		if err := c.BodyParser(&body); err != nil {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusBadRequest,
				Message: "invalid request body",
			}, err)
		}
		candidate = &body
	}

	if candidate.ResumeText == "" {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "resume text is required",
		})
	}

	if err := h.repo.Create(candidate); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to create candidate",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusCreated,
		Message: "Success create candidate",
		Data:    candidate,
	})
}

func (h *CandidateHandler) Get(c *fiber.Ctx) error {
	candidate, err := h.repo.FindByID(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "candidate not found",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get candidate",
		Data:    candidate,
	})
}

func (h *CandidateHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	candidates, total, err := h.repo.List((page-1)*pageSize, pageSize)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to list candidates",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: fmt.Sprintf("Success list %d candidates", len(candidates)),
		Data:    candidates,
		Meta:    fiber.Map{"total": total, "page": page, "page_size": pageSize},
	})
}
