package booking

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/handler"
	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/service/availability"
	bookingService "github.com/slotbook/booking-api/internal/service/booking"
	"github.com/slotbook/booking-api/pkg/errors"
	"github.com/slotbook/booking-api/pkg/metrics"
)

type Handler struct {
	bookings     *bookingService.Service
	availability *availability.Service
	metrics      *metrics.Metrics
}

func NewHandler(bookings *bookingService.Service, avail *availability.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		bookings:     bookings,
		availability: avail,
		metrics:      m,
	}
}

// RegisterPublicRoutes mounts the unauthenticated client-facing surface.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/bookings", h.CreateBooking)
	r.GET("/availability", h.GetAvailability)
}

type createBookingRequest struct {
	BusinessID string `json:"business_id" binding:"required,uuid"`
	model.CreateAppointmentRequest
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	businessID, _ := uuid.Parse(req.BusinessID)

	result, err := h.bookings.Book(c.Request.Context(), businessID, &req.CreateAppointmentRequest, model.OriginPublic)
	if err != nil {
		h.countBooking(model.OriginPublic, err)
		handler.Error(c, err)
		return
	}
	h.countBooking(model.OriginPublic, nil)

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"appointment":  result.Appointment,
		"manage_token": result.ManageToken,
	}))
}

func (h *Handler) GetAvailability(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid business ID"))
		return
	}
	masterID, err := uuid.Parse(c.Query("master_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid master ID"))
		return
	}
	date := c.Query("date")

	h.metrics.SlotQueries.Inc()

	// The client names either the services it wants or an explicit duration.
	var slots []time.Time
	if rawIDs := c.QueryArray("service_id"); len(rawIDs) > 0 {
		serviceIDs := make([]uuid.UUID, 0, len(rawIDs))
		for _, raw := range rawIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid service ID"))
				return
			}
			serviceIDs = append(serviceIDs, id)
		}
		slots, err = h.availability.SlotsForServices(c.Request.Context(), businessID, masterID, date, serviceIDs)
	} else {
		duration, parseErr := parsePositiveInt(c.Query("duration_minutes"))
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("either service_id or duration_minutes is required"))
			return
		}
		slots, err = h.availability.SlotsFor(c.Request.Context(), businessID, masterID, date, duration)
	}
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"date":  date,
		"slots": slots,
	}))
}

func (h *Handler) countBooking(origin model.AppointmentOrigin, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.IsConflict(err):
		result = "conflict"
		h.metrics.BookingConflicts.Inc()
	default:
		result = "error"
	}
	h.metrics.BookingsTotal.WithLabelValues(string(origin), result).Inc()
}
