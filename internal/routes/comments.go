package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/comments"
	"github.com/vidshare/api/internal/metrics"
	"github.com/vidshare/api/internal/middleware"
	"github.com/vidshare/api/internal/models"
	apperrors "github.com/vidshare/api/pkg/errors"
)

// CommentHandler handles comment endpoints
type CommentHandler struct {
	service *comments.Service
	logger  *logrus.Logger
}

func NewCommentHandler(service *comments.Service, logger *logrus.Logger) *CommentHandler {
	return &CommentHandler{
		service: service,
		logger:  logger,
	}
}

// List returns a video's comments, newest first. It is public.
func (h *CommentHandler) List(c *fiber.Ctx) error {
	list, err := h.service.List(c.UserContext(), c.Params("videoId"))
	if err != nil {
		return h.fail(c, "list", err)
	}

	metrics.RecordCommentOperation("list", "success")
	return c.JSON(models.CommentListResponse{Comments: list, Count: len(list)})
}

// Create adds a comment as the authenticated user
func (h *CommentHandler) Create(c *fiber.Ctx) error {
	ctx, span := middleware.StartSpan(c.UserContext(), "comments.create")
	defer span.End()

	var req models.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.RespondError(c, badBody(err))
	}

	comment, err := h.service.Create(ctx, middleware.GetPrincipal(c), c.Params("videoId"), req)
	if err != nil {
		middleware.RecordError(span, err)
		return h.fail(c, "create", err)
	}

	metrics.RecordCommentOperation("create", "success")
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// Update edits a comment owned by the authenticated user
func (h *CommentHandler) Update(c *fiber.Ctx) error {
	ctx, span := middleware.StartSpan(c.UserContext(), "comments.update")
	defer span.End()

	var req models.CommentRequest
	if parseErr := c.BodyParser(&req); parseErr != nil {
		// a missing or foreign comment outranks a bad body
		if err := h.service.CheckAccess(ctx, middleware.GetPrincipal(c), c.Params("id")); err != nil {
			return h.fail(c, "update", err)
		}
		return middleware.RespondError(c, badBody(parseErr))
	}

	comment, err := h.service.Update(ctx, middleware.GetPrincipal(c), c.Params("id"), req)
	if err != nil {
		middleware.RecordError(span, err)
		return h.fail(c, "update", err)
	}

	metrics.RecordCommentOperation("update", "success")
	return c.JSON(comment)
}

// Delete removes a comment owned by the authenticated user
func (h *CommentHandler) Delete(c *fiber.Ctx) error {
	ctx, span := middleware.StartSpan(c.UserContext(), "comments.delete")
	defer span.End()

	if err := h.service.Delete(ctx, middleware.GetPrincipal(c), c.Params("id")); err != nil {
		middleware.RecordError(span, err)
		return h.fail(c, "delete", err)
	}

	metrics.RecordCommentOperation("delete", "success")
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

func (h *CommentHandler) fail(c *fiber.Ctx, operation string, err error) error {
	appErr := toAppError(err)
	status := string(appErr.Code)
	if appErr.Code == apperrors.CodeInternalError {
		status = "error"
	}
	metrics.RecordCommentOperation(operation, status)
	return respondError(c, h.logger, err)
}
