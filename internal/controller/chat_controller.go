package controller

import (
	"thrx-be/internal/dto"
	"thrx-be/internal/pkg/serverutils"
	"thrx-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	Stop(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Branches(ctx *fiber.Ctx) error
	Graph(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	DeleteAll(ctx *fiber.Ctx) error
	OpenBranch(ctx *fiber.Ctx) error
	CloseBranch(ctx *fiber.Ctx) error
	SelectSibling(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("/messages", c.SendMessage)
	h.Get("/chats", c.GetAll)
	h.Delete("/chats", c.DeleteAll)
	h.Get("/chats/:id", c.Show)
	h.Delete("/chats/:id", c.Delete)
	h.Get("/chats/:id/branches", c.Branches)
	h.Get("/chats/:id/graph", c.Graph)
	h.Post("/chats/:id/stop", c.Stop)
	h.Post("/chats/:id/branch", c.OpenBranch)
	h.Delete("/chats/:id/branch", c.CloseBranch)
	h.Post("/chats/:id/siblings", c.SelectSibling)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *chatController) Stop(ctx *fiber.Ctx) error {
	res, err := c.service.Stop(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success stop generation", res))
}

func (c *chatController) GetAll(ctx *fiber.Ctx) error {
	filter := service.ChatListFilter{
		All:           ctx.QueryBool("all", false),
		Query:         ctx.Query("q"),
		RootMessageId: ctx.Query("root_message_id"),
	}

	res, err := c.service.ListChats(ctx.UserContext(), filter)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all chat", res))
}

func (c *chatController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.GetChat(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show chat", res))
}

func (c *chatController) Branches(ctx *fiber.Ctx) error {
	res, err := c.service.ListBranches(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get branches", res))
}

func (c *chatController) Graph(ctx *fiber.Ctx) error {
	res, err := c.service.Graph(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat graph", res))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.DeleteChat(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete chat", nil))
}

func (c *chatController) DeleteAll(ctx *fiber.Ctx) error {
	if err := c.service.ClearAll(ctx.UserContext()); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear all chat", nil))
}

func (c *chatController) OpenBranch(ctx *fiber.Ctx) error {
	var req dto.OpenBranchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.OpenBranch(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success open branch", res))
}

func (c *chatController) CloseBranch(ctx *fiber.Ctx) error {
	res, err := c.service.CloseBranch(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success close branch", res))
}

func (c *chatController) SelectSibling(ctx *fiber.Ctx) error {
	var req dto.SelectSiblingRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SelectSibling(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success select sibling", res))
}
