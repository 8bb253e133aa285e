package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// POST /api/swap-request
func (h *Handlers) CreateSwapRequest(c *gin.Context) {
	var req swapRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "my_slot_id and their_slot_id are required")
		return
	}

	swap, err := h.swapService.InitiateSwap(c.Request.Context(), userID(c), req.MySlotID, req.TheirSlotID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, swap)
}

// POST /api/swap-response/:requestId
func (h *Handlers) RespondToSwapRequest(c *gin.Context) {
	var req swapResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "accepted must be a boolean")
		return
	}

	swap, err := h.swapService.RespondToSwap(c.Request.Context(), userID(c), c.Param("requestId"), *req.Accepted)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, swap)
}

// GET /api/swap-requests
func (h *Handlers) ListSwapRequests(c *gin.Context) {
	requests, err := h.queryService.ListSwapRequests(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GET /api/swap-requests/:id
func (h *Handlers) GetSwapRequest(c *gin.Context) {
	swap, err := h.queryService.GetSwapRequest(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, swap)
}
