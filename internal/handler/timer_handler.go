package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"modtracker/internal/errors"
	"modtracker/internal/model"
	"modtracker/internal/service"
	"modtracker/internal/tracker"
)

// TimerHandler serves timer actions and the raw state storage endpoints.
type TimerHandler struct {
	timerService service.TimerService
}

// NewTimerHandler creates a new timer handler.
func NewTimerHandler(timerService service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

// PresetRequest starts a timer from a given amount. Duration accepts "H:MM", "H:MM:SS" or seconds
// and wins over Seconds when both are set.
type PresetRequest struct {
	Seconds  int64  `json:"seconds" validate:"gte=0"`
	Duration string `json:"duration"`
}

// AdjustRequest adds (or, when negative, removes) time from a timer's base.
type AdjustRequest struct {
	DeltaSeconds int64 `json:"delta_seconds" validate:"required"`
}

// CommentRequest sets the running session comment. An empty text clears it.
type CommentRequest struct {
	Text string `json:"text" validate:"max=1000"`
}

// StatesResponse wraps the records a timer action changed.
type StatesResponse struct {
	Changed []model.UserProjectState `json:"changed"`
}

// DisplayResponse is a single project's live seconds.
type DisplayResponse struct {
	ProjectID      uuid.UUID `json:"project_id"`
	DisplaySeconds int64     `json:"display_seconds"`
	Formatted      string    `json:"formatted"`
}

// View godoc
// @Summary Reconciled timers of the caller
// @Tags timers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.TimerView
// @Failure 503 {object} errors.ErrorResponse
// @Router /timers [get]
func (h *TimerHandler) View(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	view, err := h.timerService.View(c.Request().Context(), actor.UserID)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, view)
}

// Display godoc
// @Summary Live seconds of one project
// @Tags timers
// @Produce json
// @Security BearerAuth
// @Param projectId path string true "Project ID"
// @Success 200 {object} DisplayResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /timers/{projectId}/display [get]
func (h *TimerHandler) Display(c echo.Context) error {
	actor, projectID, err := h.target(c)
	if err != nil {
		return err
	}
	secs, err := h.timerService.DisplaySeconds(c.Request().Context(), actor.UserID, projectID)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, DisplayResponse{
		ProjectID:      projectID,
		DisplaySeconds: secs,
		Formatted:      tracker.FormatHMS(secs),
	})
}

// Start godoc
// @Summary Start a timer, stopping any other running timer of the caller
// @Tags timers
// @Produce json
// @Security BearerAuth
// @Param projectId path string true "Project ID"
// @Success 200 {object} StatesResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /timers/{projectId}/start [post]
func (h *TimerHandler) Start(c echo.Context) error {
	actor, projectID, err := h.target(c)
	if err != nil {
		return err
	}
	return h.respond(c)(h.timerService.Start(c.Request().Context(), actor.UserID, projectID))
}

// Stop godoc
// @Summary Stop a timer
// @Tags timers
// @Produce json
// @Security BearerAuth
// @Param projectId path string true "Project ID"
// @Success 200 {object} StatesResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /timers/{projectId}/stop [post]
func (h *TimerHandler) Stop(c echo.Context) error {
	actor, projectID, err := h.target(c)
	if err != nil {
		return err
	}
	return h.respond(c)(h.timerService.Stop(c.Request().Context(), actor.UserID, projectID))
}

// Preset godoc
// @Summary Start a timer from a preset amount
// @Tags timers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path string true "Project ID"
// @Param request body PresetRequest true "Initial amount"
// @Success 200 {object} StatesResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /timers/{projectId}/preset [post]
func (h *TimerHandler) Preset(c echo.Context) error {
	actor, projectID, err := h.target(c)
	if err != nil {
		return err
	}
	var req PresetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	seconds := req.Seconds
	if req.Duration != "" {
		if seconds, err = tracker.ParseHMS(req.Duration); err != nil {
			return fromService(err)
		}
	}
	return h.respond(c)(h.timerService.StartWithPreset(c.Request().Context(), actor.UserID, projectID, seconds))
}

// Adjust godoc
// @Summary Add or remove time from a timer
// @Tags timers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path string true "Project ID"
// @Param request body AdjustRequest true "Delta"
// @Success 200 {object} StatesResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /timers/{projectId}/adjust [post]
func (h *TimerHandler) Adjust(c echo.Context) error {
	actor, projectID, err := h.target(c)
	if err != nil {
		return err
	}
	var req AdjustRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.respond(c)(h.timerService.Adjust(c.Request().Context(), actor.UserID, projectID, req.DeltaSeconds))
}

// Reset godoc
// @Summary Zero a timer and stop it
// @Tags timers
// @Produce json
// @Security BearerAuth
// @Param projectId path string true "Project ID"
// @Success 200 {object} StatesResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /timers/{projectId}/reset [post]
func (h *TimerHandler) Reset(c echo.Context) error {
	actor, projectID, err := h.target(c)
	if err != nil {
		return err
	}
	return h.respond(c)(h.timerService.Reset(c.Request().Context(), actor.UserID, projectID))
}

// Comment godoc
// @Summary Set the session comment of a timer
// @Tags timers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectId path string true "Project ID"
// @Param request body CommentRequest true "Comment"
// @Success 200 {object} StatesResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /timers/{projectId}/comment [post]
func (h *TimerHandler) Comment(c echo.Context) error {
	actor, projectID, err := h.target(c)
	if err != nil {
		return err
	}
	var req CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.respond(c)(h.timerService.SetComment(c.Request().Context(), actor.UserID, projectID, req.Text))
}

// GetStates godoc
// @Summary Stored timer records of a user, as stored
// @Tags storage
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {array} model.UserProjectState
// @Failure 403 {object} errors.ErrorResponse
// @Router /users/{id}/states [get]
func (h *TimerHandler) GetStates(c echo.Context) error {
	userID, err := h.owner(c)
	if err != nil {
		return err
	}
	states, err := h.timerService.States(c.Request().Context(), userID)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, states)
}

// PutState godoc
// @Summary Upsert one timer record. Accepts snake_case or camelCase keys, numeric strings and epoch-millisecond timestamps.
// @Tags storage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param projectId path string true "Project ID"
// @Param request body map[string]interface{} true "Timer record"
// @Success 200 {object} model.UserProjectState
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users/{id}/states/{projectId} [put]
func (h *TimerHandler) PutState(c echo.Context) error {
	userID, err := h.owner(c)
	if err != nil {
		return err
	}
	projectID, err := uuidParam(c, "projectId")
	if err != nil {
		return err
	}

	raw := tracker.Raw{}
	if err := c.Bind(&raw); err != nil {
		return invalidBody()
	}
	raw["user_id"] = userID.String()
	raw["project_id"] = projectID.String()
	delete(raw, "userId")
	delete(raw, "projectId")

	state, ok := tracker.NormalizeState(raw)
	if !ok {
		return invalidBody()
	}
	if err := h.timerService.PutState(c.Request().Context(), state); err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, state)
}

func (h *TimerHandler) target(c echo.Context) (service.Actor, uuid.UUID, error) {
	actor, err := actorFrom(c)
	if err != nil {
		return service.Actor{}, uuid.Nil, err
	}
	projectID, err := uuidParam(c, "projectId")
	if err != nil {
		return service.Actor{}, uuid.Nil, err
	}
	return actor, projectID, nil
}

// owner resolves the :id path user and checks the caller may touch their records.
func (h *TimerHandler) owner(c echo.Context) (uuid.UUID, error) {
	actor, err := actorFrom(c)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuidParam(c, "id")
	if err != nil {
		return uuid.Nil, err
	}
	if !actor.CanAccess(userID) {
		return uuid.Nil, fromService(errors.ErrForbidden)
	}
	return userID, nil
}

func (h *TimerHandler) respond(c echo.Context) func([]model.UserProjectState, error) error {
	return func(changed []model.UserProjectState, err error) error {
		if err != nil {
			return fromService(err)
		}
		if changed == nil {
			changed = []model.UserProjectState{}
		}
		return c.JSON(http.StatusOK, StatesResponse{Changed: changed})
	}
}
