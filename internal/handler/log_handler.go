package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"modtracker/internal/model"
	"modtracker/internal/repository"
	"modtracker/internal/service"
	"modtracker/internal/tracker"
)

// LogHandler serves committed log entries and their edit history.
type LogHandler struct {
	logService service.LogService
}

// NewLogHandler creates a new log handler.
func NewLogHandler(logService service.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// CreateLogRequest adds a MANUAL or PRESET entry. Duration accepts "H:MM", "H:MM:SS" or
// seconds and wins over DurationSeconds when both are set.
type CreateLogRequest struct {
	UserID          string        `json:"user_id" validate:"omitempty,uuid"`
	ProjectID       string        `json:"project_id" validate:"required,uuid"`
	Date            string        `json:"date" validate:"required"`
	DurationSeconds int64         `json:"duration_seconds"`
	Duration        string        `json:"duration"`
	Kind            model.LogKind `json:"kind" validate:"omitempty,oneof=MANUAL PRESET NORMAL"`
	Comment         string        `json:"comment" validate:"max=1000"`
}

// EditLogRequest replaces the editable fields of an entry.
type EditLogRequest struct {
	DurationSeconds int64   `json:"duration_seconds"`
	Duration        string  `json:"duration"`
	Date            string  `json:"date" validate:"required"`
	Comment         *string `json:"comment"`
}

func durationOf(seconds int64, text string) (int64, error) {
	if text == "" {
		return seconds, nil
	}
	return tracker.ParseHMS(text)
}

// List godoc
// @Summary List log entries
// @Description Operators only see their own entries. Admins may filter by any user or omit user_id for everyone.
// @Tags logs
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "User ID"
// @Param project_id query string false "Project ID"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Success 200 {array} model.DailyLogEntry
// @Failure 403 {object} errors.ErrorResponse
// @Router /logs [get]
func (h *LogHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	filter := repository.LogFilter{From: c.QueryParam("from"), To: c.QueryParam("to")}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest("INVALID_UUID", "invalid user_id")
		}
		filter.UserID = &id
	}
	if v := c.QueryParam("project_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest("INVALID_UUID", "invalid project_id")
		}
		filter.ProjectID = &id
	}
	for _, d := range []string{filter.From, filter.To} {
		if d != "" && !tracker.ValidDateKey(d) {
			return badRequest("INVALID_DATE", "dates must be YYYY-MM-DD")
		}
	}

	entries, err := h.logService.List(c.Request().Context(), actor, filter)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, entries)
}

// Create godoc
// @Summary Add a manual or preset log entry
// @Tags logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateLogRequest true "Entry"
// @Success 201 {object} model.DailyLogEntry
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /logs [post]
func (h *LogHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req CreateLogRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := tracker.EntryInput{
		ProjectID: uuid.MustParse(req.ProjectID),
		Date:      req.Date,
		Kind:      req.Kind,
		Comment:   req.Comment,
	}
	if req.UserID != "" {
		in.UserID = uuid.MustParse(req.UserID)
	}
	if in.DurationSeconds, err = durationOf(req.DurationSeconds, req.Duration); err != nil {
		return fromService(err)
	}

	entry, err := h.logService.AddEntry(c.Request().Context(), actor, in)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// Edit godoc
// @Summary Edit a log entry, appending an audit record
// @Tags logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Log ID"
// @Param request body EditLogRequest true "New values"
// @Success 200 {object} model.LogModificationRecord
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /logs/{id} [patch]
func (h *LogHandler) Edit(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req EditLogRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	edit := tracker.LogEdit{Date: req.Date, Comment: req.Comment}
	if edit.DurationSeconds, err = durationOf(req.DurationSeconds, req.Duration); err != nil {
		return fromService(err)
	}

	record, err := h.logService.Edit(c.Request().Context(), actor, id, edit)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, record)
}

// History godoc
// @Summary Edit history of a log entry, oldest first
// @Tags logs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Log ID"
// @Success 200 {array} model.LogModificationRecord
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /logs/{id}/history [get]
func (h *LogHandler) History(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	records, err := h.logService.History(c.Request().Context(), actor, id)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, records)
}
