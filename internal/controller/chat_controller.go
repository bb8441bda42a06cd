package controller

import (
	"errors"

	"agentic-chat-be/internal/dto"
	"agentic-chat-be/internal/pkg/serverutils"
	"agentic-chat-be/internal/service"
	"agentic-chat-be/pkg/agent/turn"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	GetTranscript(ctx *fiber.Ctx) error
	SubmitTurn(ctx *fiber.Ctx) error
	AdvanceTurn(ctx *fiber.Ctx) error
	SetMark(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("session", c.CreateSession)
	h.Get("session", c.GetAllSessions)
	h.Delete("session/:id", c.DeleteSession)
	h.Get("session/:id/transcript", c.GetTranscript)
	h.Post("turn", c.SubmitTurn)
	h.Post("turn/advance", c.AdvanceTurn)
	h.Put("exchange/mark", c.SetMark)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.chatService.CreateSession(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	res, err := c.chatService.GetAllSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.chatService.DeleteSession(ctx.Context(), userId, id); err != nil {
		return mapChatError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete session", nil))
}

func (c *chatController) GetTranscript(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	// ?marked=true narrows the transcript to pinned exchanges.
	res, err := c.chatService.GetTranscript(ctx.Context(), userId, id, ctx.QueryBool("marked"))
	if err != nil {
		return mapChatError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get transcript", res))
}

func (c *chatController) SubmitTurn(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.SubmitTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SubmitTurn(ctx.Context(), userId, &req)
	if err != nil {
		return mapChatError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Turn queued", res))
}

func (c *chatController) AdvanceTurn(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.AdvanceTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.AdvanceTurn(ctx.Context(), userId, &req)
	if err != nil {
		return mapChatError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Turn completed", res))
}

func (c *chatController) SetMark(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.SetMarkRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chatService.SetMark(ctx.Context(), userId, &req); err != nil {
		return mapChatError(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update mark", nil))
}

func currentUserId(ctx *fiber.Ctx) uuid.UUID {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	return userId
}

func mapChatError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, turn.ErrTurnInFlight),
		errors.Is(err, turn.ErrNoQueuedTurn),
		errors.Is(err, turn.ErrStaleToken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
