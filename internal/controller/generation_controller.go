package controller

import (
	"ai-studykit-be/internal/dto"
	"ai-studykit-be/internal/pkg/serverutils"
	"ai-studykit-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxRelatedLimit = 20

type IGenerationController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Related(ctx *fiber.Ctx) error
	ListJobs(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type generationController struct {
	service service.IGenerationService
}

func NewGenerationController(service service.IGenerationService) IGenerationController {
	return &generationController{service: service}
}

func (c *generationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/generation/v1")
	h.Post("/jobs", c.Create)
	h.Get("/jobs/:id", c.Show)
	h.Delete("/jobs/:id", c.Delete)
	h.Get("/modules/:moduleId/jobs", c.ListJobs)
	h.Get("/modules/:moduleId/related", c.Related)
}

func (c *generationController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateGenerationJobRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Submit(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Generation job queued", res))
}

func (c *generationController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}

	res, err := c.service.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show generation job", res))
}

func (c *generationController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}

	if err := c.service.Delete(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete generation job", nil))
}

func (c *generationController) Related(ctx *fiber.Ctx) error {
	moduleId, err := uuid.Parse(ctx.Params("moduleId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid module id")
	}

	limit := ctx.QueryInt("limit", 5)
	if limit < 1 || limit > maxRelatedLimit {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 20")
	}

	res, err := c.service.SearchRelated(ctx.UserContext(), moduleId, ctx.Query("q"), limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search related artifacts", res))
}

func (c *generationController) ListJobs(ctx *fiber.Ctx) error {
	moduleId, err := uuid.Parse(ctx.Params("moduleId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid module id")
	}

	req := dto.ListGenerationJobsRequest{
		ModuleId: moduleId,
		Status:   ctx.Query("status"),
		Limit:    ctx.QueryInt("limit", 20),
		Offset:   ctx.QueryInt("offset", 0),
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ListJobs(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list generation jobs", res))
}
