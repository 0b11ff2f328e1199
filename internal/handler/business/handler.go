package business

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotbook/booking-api/internal/handler"
	"github.com/slotbook/booking-api/internal/middleware"
	"github.com/slotbook/booking-api/internal/model"
	businessService "github.com/slotbook/booking-api/internal/service/business"
)

type Handler struct {
	businesses *businessService.Service
}

func NewHandler(businesses *businessService.Service) *Handler {
	return &Handler{businesses: businesses}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	business := r.Group("/business")
	{
		business.GET("", h.GetBusiness)
		business.GET("/policy", h.GetPolicy)
		business.PUT("/policy", h.UpdatePolicy)
	}
}

func (h *Handler) GetBusiness(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	b, err := h.businesses.GetBusiness(c.Request.Context(), businessID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(b))
}

func (h *Handler) GetPolicy(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	policy, err := h.businesses.Policy(c.Request.Context(), businessID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(policy))
}

func (h *Handler) UpdatePolicy(c *gin.Context) {
	businessID, ok := middleware.BusinessID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing business scope"))
		return
	}

	var req model.UpdateBusinessPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	policy, err := h.businesses.UpdatePolicy(c.Request.Context(), businessID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(policy))
}
