package handlers

import (
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	ClientName      string    `json:"client_name" binding:"required"`
	StartsAt        time.Time `json:"starts_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1"`
	Price           float64   `json:"price" binding:"min=0"`
}

func (h *Handler) createBooking(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	booking, err := h.svc.Bookings.Create(c.Request.Context(), tenantID, req.ClientName, req.StartsAt, req.DurationMinutes, req.Price)
	if err != nil {
		respondServiceError(c, err, "create booking failed")
		return
	}
	response.RespondOK(c, nethttp.StatusCreated, booking, nil)
}

func (h *Handler) cancelBooking(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	booking, err := h.svc.Bookings.Cancel(c.Request.Context(), tenantID, id)
	if err != nil {
		respondServiceError(c, err, "cancel booking failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, booking, nil)
}

func (h *Handler) listBookings(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	cursor := c.Query("cursor")

	bookings, nextCursor, err := h.svc.Bookings.List(c.Request.Context(), tenantID, limit, cursor)
	if err != nil {
		respondServiceError(c, err, "list bookings failed")
		return
	}
	meta := &response.Meta{NextCursor: nextCursor}
	response.RespondOK(c, nethttp.StatusOK, bookings, meta)
}
