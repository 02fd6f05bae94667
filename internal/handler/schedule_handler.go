package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/preenroll-api/internal/service"
	"github.com/campushq/preenroll-api/pkg/response"
)

// ScheduleHandler exposes day and time slot reference endpoints.
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// ListDays godoc
// @Summary List weekdays
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /days [get]
func (h *ScheduleHandler) ListDays(c *gin.Context) {
	days, err := h.schedule.ListDays(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// ListTimeSlots godoc
// @Summary List known time slots
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timeslots [get]
func (h *ScheduleHandler) ListTimeSlots(c *gin.Context) {
	slots, err := h.schedule.ListTimeSlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
