package api

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"user-api/internal/service"
	"user-api/internal/validation"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Error  string                 `json:"error"`
	Errors []validation.Violation `json:"errors"`
}

// ListUsers godoc
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {array}   model.User
// @Failure      500  {object}  ErrorResponse
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.userService.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(users)
}

// GetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  model.User
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, ok := parseUserID(c)
	if !ok {
		return respondError(c, service.ErrUserNotFound)
	}

	user, err := h.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

// CreateUser godoc
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        user  body      validation.CreateUserInput  true  "New user"
// @Success      201   {object}  model.User
// @Failure      400   {object}  ValidationErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req validation.CreateUserInput

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	user, err := h.userService.CreateUser(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser godoc
// @Summary      Update a user
// @Description  Only the supplied fields change.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int                         true  "User ID"
// @Param        user  body      validation.UpdateUserInput  true  "Fields to change"
// @Success      200   {object}  model.User
// @Failure      400   {object}  ValidationErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /api/users/{id} [put]
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, ok := parseUserID(c)
	if !ok {
		return respondError(c, service.ErrUserNotFound)
	}

	var req validation.UpdateUserInput

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	user, err := h.userService.UpdateUser(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

// DeleteUser godoc
// @Summary      Delete a user
// @Tags         users
// @Param        id   path      int  true  "User ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := parseUserID(c)
	if !ok {
		return respondError(c, service.ErrUserNotFound)
	}

	if err := h.userService.DeleteUser(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// parseUserID treats anything that is not a plain positive decimal (signs
// included) as an unknown user rather than a bad request.
func parseUserID(c *fiber.Ctx) (int64, bool) {
	raw := c.Params("id")
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func respondError(c *fiber.Ctx, err error) error {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(ValidationErrorResponse{
			Error:  "Invalid input",
			Errors: verr.Violations,
		})
	case errors.Is(err, service.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, service.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
	default:
		slog.ErrorContext(c.UserContext(), "Unhandled error", slog.String("path", c.Path()), slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
