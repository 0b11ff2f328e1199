package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotbook/booking-api/internal/handler"
	"github.com/slotbook/booking-api/internal/middleware"
	"github.com/slotbook/booking-api/internal/model"
	catalogService "github.com/slotbook/booking-api/internal/service/catalog"
)

type Handler struct {
	catalog *catalogService.Service
}

func NewHandler(catalog *catalogService.Service) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	services := r.Group("/services")
	{
		services.POST("", h.CreateService)
		services.GET("", h.ListServices)
	}
}

func (h *Handler) CreateService(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	var req model.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	svc, err := h.catalog.CreateService(c.Request.Context(), businessID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(svc))
}

func (h *Handler) ListServices(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	services, err := h.catalog.ListServices(c.Request.Context(), businessID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(services))
}
