package controller

import (
	"thrx-be/internal/dto"
	"thrx-be/internal/pkg/serverutils"
	"thrx-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IModelController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Load(ctx *fiber.Ctx) error
}

type modelController struct {
	service service.IModelService
}

func NewModelController(service service.IModelService) IModelController {
	return &modelController{service: service}
}

func (c *modelController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/model/v1")
	h.Get("/models", c.GetAll)
	h.Post("/load", c.Load)
}

func (c *modelController) GetAll(ctx *fiber.Ctx) error {
	res := c.service.List(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success get all model", res))
}

func (c *modelController) Load(ctx *fiber.Ctx) error {
	var req dto.LoadModelRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Load(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success load model", res))
}
