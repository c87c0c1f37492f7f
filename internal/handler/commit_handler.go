package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"modtracker/internal/model"
	"modtracker/internal/service"
)

// CommitHandler serves the daily commit and the day-boundary trigger.
type CommitHandler struct {
	commitService service.CommitService
	now           func() time.Time
}

// NewCommitHandler creates a new commit handler.
func NewCommitHandler(commitService service.CommitService) *CommitHandler {
	return &CommitHandler{commitService: commitService, now: time.Now}
}

// DayRequest names the caller's local day. An empty day means the server's date.
type DayRequest struct {
	Today string `json:"today"`
}

// CommitResponse lists the entries a commit wrote.
type CommitResponse struct {
	Day     string                `json:"day"`
	Entries []model.DailyLogEntry `json:"entries"`
}

// Commit godoc
// @Summary Commit all accrued time into the log and zero the timers
// @Tags commit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DayRequest false "Day to commit under"
// @Success 200 {object} CommitResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /commit [post]
func (h *CommitHandler) Commit(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req DayRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	day := dayOrToday(req.Today, h.now)

	entries, err := h.commitService.CommitDaily(c.Request().Context(), actor.UserID, day)
	if err != nil {
		return fromService(err)
	}
	if entries == nil {
		entries = []model.DailyLogEntry{}
	}
	return c.JSON(http.StatusOK, CommitResponse{Day: day, Entries: entries})
}

// Rollover godoc
// @Summary Commit the previous day if the day has changed since the last check
// @Description Safe to call repeatedly: a given day is committed at most once.
// @Tags commit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DayRequest false "Caller's local day"
// @Success 200 {object} service.RolloverResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /commit/rollover [post]
func (h *CommitHandler) Rollover(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req DayRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	result, err := h.commitService.Rollover(c.Request().Context(), actor.UserID, dayOrToday(req.Today, h.now))
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, result)
}
