package handlers

import (
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/slotswap/internal/render"
	"github.com/gin-gonic/gin"
)

// GET /api/calendar/week?date=2006-01-02&tz=Europe/Moscow
func (h *Handlers) WeekCalendar(c *gin.Context) {
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			h.badRequest(c, "unknown time zone")
			return
		}
		loc = l
	}

	now := time.Now().In(loc)
	date := now
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			h.badRequest(c, "date must be in YYYY-MM-DD format")
			return
		}
		date = d
	}

	events, err := h.queryService.ListOwnEvents(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	img, err := render.WeekImage(date, events, now)
	if err != nil {
		h.writeError(c, fmt.Errorf("render week calendar: %w", err))
		return
	}

	c.Data(http.StatusOK, "image/png", img)
}
