package controller

import (
	"errors"

	"ai-chatbot-be/internal/constant"
	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/pkg/serverutils"
	"ai-chatbot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler)
	Hello(ctx *fiber.Ctx) error
	SubmitQuery(ctx *fiber.Ctx) error
	CheckAnswer(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	Rate(ctx *fiber.Ctx) error
	MarkSolved(ctx *fiber.Ctx) error
	Abort(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service service.IChatbotService
}

func NewChatbotController(service service.IChatbotService) IChatbotController {
	return &chatbotController{service: service}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router, authMiddleware fiber.Handler) {
	h := r.Group("/chat")
	h.Use(authMiddleware)
	h.Get("/hello", c.Hello)
	h.Post("/query", c.SubmitQuery)
	h.Post("/query/:session_id", c.SubmitQuery)
	h.Get("/check_answer/:session_id/:process_id", c.CheckAnswer)
	h.Get("/session/:session_id", c.GetSession)
	h.Post("/rate/:session_id", c.Rate)
	h.Post("/solved/:session_id", c.MarkSolved)
	h.Post("/abort/:session_id", c.Abort)
}

func (c *chatbotController) Hello(ctx *fiber.Ctx) error {
	res := c.service.Hello(ctx.UserContext(), agentId(ctx))
	return ctx.JSON(serverutils.SuccessResponse("Hello", res))
}

func (c *chatbotController) SubmitQuery(ctx *fiber.Ctx) error {
	var req dto.SubmitQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	var sessionId *string
	if id := ctx.Params("session_id"); id != "" {
		sessionId = &id
	}

	res, err := c.service.SubmitQuery(ctx.UserContext(), agentId(ctx), sessionId, &req)
	if err != nil {
		return mapServiceError(err)
	}

	if res.Status == constant.SessionStatusProcessing {
		return ctx.Status(fiber.StatusAccepted).
			JSON(serverutils.SuccessResponseWithCode(fiber.StatusAccepted, "Query accepted", res))
	}
	return ctx.JSON(serverutils.SuccessResponse("Query answered", res))
}

func (c *chatbotController) CheckAnswer(ctx *fiber.Ctx) error {
	res, err := c.service.CheckAnswer(ctx.UserContext(), ctx.Params("session_id"), ctx.Params("process_id"))
	if err != nil {
		return mapServiceError(err)
	}

	if res.ProcessStatus == constant.ProcessStatusProcessing {
		return ctx.Status(fiber.StatusAccepted).
			JSON(serverutils.SuccessResponseWithCode(fiber.StatusAccepted, "Answer not ready", res))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success check answer", res))
}

func (c *chatbotController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.UserContext(), ctx.Params("session_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *chatbotController) Rate(ctx *fiber.Ctx) error {
	var req dto.RateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Rate(ctx.UserContext(), ctx.Params("session_id"), req.Rating)
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rate session", res))
}

func (c *chatbotController) MarkSolved(ctx *fiber.Ctx) error {
	var req dto.SolvedRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.MarkSolved(ctx.UserContext(), ctx.Params("session_id"), req.Solved)
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success mark session solved", res))
}

func (c *chatbotController) Abort(ctx *fiber.Ctx) error {
	res, err := c.service.Abort(ctx.UserContext(), ctx.Params("session_id"))
	if err != nil {
		return mapServiceError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success abort session", res))
}

func agentId(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(serverutils.LocalAgentID).(string)
	return id
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, "Conflict")
	case errors.Is(err, service.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Service unavailable")
	}
	return err
}
