package handlers

import (
	"net/http"

	"github.com/Freeeeeet/slotswap/internal/service"
	"github.com/gin-gonic/gin"
)

// GET /api/events
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.queryService.ListOwnEvents(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// POST /api/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	event, err := h.eventService.Create(c.Request.Context(), userID(c), service.CreateEventInput{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	event, err := h.eventService.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// PUT /api/events/:id
func (h *Handlers) UpdateEvent(c *gin.Context) {
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	event, err := h.eventService.Update(c.Request.Context(), userID(c), c.Param("id"), service.EventPatch{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// DELETE /api/events/:id
func (h *Handlers) DeleteEvent(c *gin.Context) {
	if err := h.eventService.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/swappable-slots
func (h *Handlers) ListSwappableSlots(c *gin.Context) {
	events, err := h.queryService.ListSwappableSlots(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GET /healthz
func (h *Handlers) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
