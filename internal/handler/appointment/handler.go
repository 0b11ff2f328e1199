package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/handler"
	"github.com/slotbook/booking-api/internal/middleware"
	"github.com/slotbook/booking-api/internal/model"
	bookingService "github.com/slotbook/booking-api/internal/service/booking"
)

type Handler struct {
	bookings *bookingService.Service
}

func NewHandler(bookings *bookingService.Service) *Handler {
	return &Handler{bookings: bookings}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.POST("/series", h.CreateSeries)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.DELETE("/:id/tokens", h.RevokeTokens)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.bookings.Book(c.Request.Context(), businessID, &req, model.OriginStaff)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result.Appointment))
}

// CreateSeries books a recurring series. Occurrences that collide with
// existing appointments are reported as skipped, not errors; the response
// is 201 as long as at least one occurrence was booked.
func (h *Handler) CreateSeries(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	var req model.CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	outcomes, err := h.bookings.BookSeries(c.Request.Context(), businessID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	booked := 0
	for _, o := range outcomes {
		if !o.Skipped {
			booked++
		}
	}

	status := http.StatusCreated
	if booked == 0 {
		status = http.StatusConflict
	}
	c.JSON(status, handler.NewSuccessResponse(gin.H{
		"booked":   booked,
		"skipped":  len(outcomes) - booked,
		"outcomes": outcomes,
	}))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	apt, err := h.bookings.GetAppointment(c.Request.Context(), businessID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	filters := &model.AppointmentFilters{}

	if id := c.Query("master_id"); id != "" {
		masterID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid master ID"))
			return
		}
		filters.MasterID = masterID
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid from timestamp"))
			return
		}
		filters.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid to timestamp"))
			return
		}
		filters.To = t
	}

	appointments, err := h.bookings.ListAppointments(c.Request.Context(), businessID, filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.bookings.Transition(c.Request.Context(), businessID, id, req.Status, req.CancelReason)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) RevokeTokens(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	if err := h.bookings.RevokeAppointmentTokens(c.Request.Context(), businessID, id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"revoked": true}))
}
