package changerequest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/handler"
	"github.com/slotbook/booking-api/internal/middleware"
	"github.com/slotbook/booking-api/internal/model"
	changeService "github.com/slotbook/booking-api/internal/service/changerequest"
)

type Handler struct {
	changes *changeService.Service
}

func NewHandler(changes *changeService.Service) *Handler {
	return &Handler{changes: changes}
}

// RegisterPublicRoutes mounts the token-scoped client surface. The path
// token is the manage secret handed out at booking time; possession of it
// is the only authorization.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments/:token")
	{
		appointments.GET("", h.ViewAppointment)
		appointments.POST("/change-requests", h.CreateChangeRequest)
		appointments.DELETE("/change-requests/:id", h.WithdrawChangeRequest)
	}
}

func (h *Handler) RegisterStaffRoutes(r *gin.RouterGroup) {
	requests := r.Group("/change-requests")
	{
		requests.GET("", h.ListPending)
		requests.POST("/:id/decision", h.Decide)
	}
}

func (h *Handler) ViewAppointment(c *gin.Context) {
	apt, err := h.changes.ResolveToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) CreateChangeRequest(c *gin.Context) {
	var req model.CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cr, err := h.changes.Create(c.Request.Context(), c.Param("token"), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cr))
}

func (h *Handler) WithdrawChangeRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid change request ID"))
		return
	}

	cr, err := h.changes.Withdraw(c.Request.Context(), c.Param("token"), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(cr))
}

func (h *Handler) ListPending(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	requests, err := h.changes.ListPending(c.Request.Context(), businessID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(requests))
}

func (h *Handler) Decide(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid change request ID"))
		return
	}

	var req model.DecideChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cr, err := h.changes.Decide(c.Request.Context(), businessID, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(cr))
}
