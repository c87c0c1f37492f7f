package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"modtracker/internal/model"
	"modtracker/internal/service"
)

// UserHandler serves user profile and administration endpoints.
type UserHandler struct {
	svc  service.UserService
	auth service.AuthService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, auth service.AuthService) *UserHandler {
	return &UserHandler{svc: svc, auth: auth}
}

// CreateUserRequest is an admin request to add an account.
type CreateUserRequest struct {
	Username string     `json:"username" validate:"required,min=2,max=100"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=ADMIN OPERATOR"`
}

// ProjectOrderRequest carries the caller's preferred project order.
type ProjectOrderRequest struct {
	ProjectIDs []string `json:"project_ids" validate:"dive,uuid"`
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), actor.UserID)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User payload"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Register(c.Request().Context(), req.Username, req.Password, req.Role)
	if err != nil {
		return registrationError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

// UpdateProjectOrder godoc
// @Summary Save the caller's project order
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProjectOrderRequest true "Ordered project ids"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Router /me/project-order [put]
func (h *UserHandler) UpdateProjectOrder(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req ProjectOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	order := make([]uuid.UUID, 0, len(req.ProjectIDs))
	for _, raw := range req.ProjectIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest("INVALID_UUID", "invalid project id")
		}
		order = append(order, id)
	}

	user, err := h.svc.UpdateProjectOrder(c.Request().Context(), actor.UserID, order)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, user)
}
