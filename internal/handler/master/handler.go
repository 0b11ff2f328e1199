package master

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/handler"
	"github.com/slotbook/booking-api/internal/middleware"
	"github.com/slotbook/booking-api/internal/model"
	masterService "github.com/slotbook/booking-api/internal/service/master"
)

type Handler struct {
	masters *masterService.Service
}

func NewHandler(masters *masterService.Service) *Handler {
	return &Handler{masters: masters}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	masters := r.Group("/masters")
	{
		masters.POST("", h.CreateMaster)
		masters.GET("", h.ListMasters)
		masters.GET("/:id", h.GetMaster)
		masters.PUT("/:id", h.UpdateMaster)
		masters.PUT("/:id/schedule", h.UpdateSchedule)
	}
}

func (h *Handler) CreateMaster(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	var req model.CreateMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	m, err := h.masters.CreateMaster(c.Request.Context(), businessID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(m))
}

func (h *Handler) GetMaster(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid master ID"))
		return
	}

	m, err := h.masters.GetMaster(c.Request.Context(), businessID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) ListMasters(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	masters, err := h.masters.ListMasters(c.Request.Context(), businessID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(masters))
}

func (h *Handler) UpdateMaster(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid master ID"))
		return
	}

	var req model.UpdateMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	m, err := h.masters.UpdateMaster(c.Request.Context(), businessID, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid master ID"))
		return
	}

	var req model.UpdateMasterScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	m, err := h.masters.UpdateSchedule(c.Request.Context(), businessID, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}
