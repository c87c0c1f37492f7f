package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"modtracker/internal/service"
)

// ProjectHandler serves project endpoints.
type ProjectHandler struct {
	projectService service.ProjectService
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// ProjectRequest is the create/update payload.
type ProjectRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Category string `json:"category" validate:"max=100"`
	Color    string `json:"color" validate:"omitempty,hexcolor"`
	IsGlobal bool   `json:"is_global"`
}

// ActiveRequest toggles a project's active flag.
type ActiveRequest struct {
	Active bool `json:"active"`
}

// HiddenRequest toggles whether a project is hidden for the caller.
type HiddenRequest struct {
	Hidden bool `json:"hidden"`
}

func (r ProjectRequest) input() service.ProjectInput {
	return service.ProjectInput{Name: r.Name, Category: r.Category, Color: r.Color, IsGlobal: r.IsGlobal}
}

// List godoc
// @Summary List projects visible to the caller with their timer state
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param include_hidden query bool false "Include projects hidden by the caller"
// @Success 200 {array} service.ProjectView
// @Failure 401 {object} errors.ErrorResponse
// @Router /projects [get]
func (h *ProjectHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	includeHidden := c.QueryParam("include_hidden") == "true"
	views, err := h.projectService.List(c.Request().Context(), actor, includeHidden)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, views)
}

// Create godoc
// @Summary Create a project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProjectRequest true "Project"
// @Success 201 {object} model.Project
// @Failure 400 {object} errors.ErrorResponse
// @Router /projects [post]
func (h *ProjectHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req ProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	project, err := h.projectService.Create(c.Request().Context(), actor, req.input())
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusCreated, project)
}

// Update godoc
// @Summary Update a project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param request body ProjectRequest true "Project"
// @Success 200 {object} model.Project
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req ProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	project, err := h.projectService.Update(c.Request().Context(), actor, id, req.input())
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, project)
}

// SetActive godoc
// @Summary Deactivate or reactivate a project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param request body ActiveRequest true "Active flag"
// @Success 200 {object} model.Project
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id}/active [patch]
func (h *ProjectHandler) SetActive(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req ActiveRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	project, err := h.projectService.SetActive(c.Request().Context(), actor, id, req.Active)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, project)
}

// SetHidden godoc
// @Summary Hide or unhide a project for the caller
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param request body HiddenRequest true "Hidden flag"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id}/hidden [put]
func (h *ProjectHandler) SetHidden(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req HiddenRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := h.projectService.SetHidden(c.Request().Context(), actor, id, req.Hidden); err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "updated"})
}
