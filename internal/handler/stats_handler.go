package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"modtracker/internal/service"
)

// StatsHandler serves reporting endpoints.
type StatsHandler struct {
	statsService service.StatsService
	now          func() time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsService service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService, now: time.Now}
}

// Overview godoc
// @Summary Aggregated statistics across all users (admin)
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Param today query string false "Reference day (YYYY-MM-DD)"
// @Success 200 {object} service.Overview
// @Failure 403 {object} errors.ErrorResponse
// @Router /stats/overview [get]
func (h *StatsHandler) Overview(c echo.Context) error {
	overview, err := h.statsService.Overview(c.Request().Context(), dayOrToday(c.QueryParam("today"), h.now))
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, overview)
}

// Me godoc
// @Summary Per-day totals of the caller
// @Tags stats
// @Produce json
// @Security BearerAuth
// @Param today query string false "Last day of the window (YYYY-MM-DD)"
// @Param days query int false "Window length in days" default(7)
// @Success 200 {object} service.PersonalSummary
// @Failure 400 {object} errors.ErrorResponse
// @Router /stats/me [get]
func (h *StatsHandler) Me(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	days := 0
	if v := c.QueryParam("days"); v != "" {
		if days, err = strconv.Atoi(v); err != nil || days < 0 || days > 366 {
			return badRequest("INVALID_DAYS", "days must be between 0 and 366")
		}
	}

	summary, err := h.statsService.Personal(c.Request().Context(), actor.UserID, dayOrToday(c.QueryParam("today"), h.now), days)
	if err != nil {
		return fromService(err)
	}
	return c.JSON(http.StatusOK, summary)
}
