package device

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roundbuy/notification-api/internal/handler"
	"github.com/roundbuy/notification-api/internal/model"
	deviceService "github.com/roundbuy/notification-api/internal/service/device"
)

type Handler struct {
	service deviceService.Service
}

func NewHandler(service deviceService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts device endpoints on an optionally-authenticated
// group; registration works for guests, the token list requires a user.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	devices := r.Group("/devices")
	{
		devices.POST("/register", h.RegisterDevice)
		devices.GET("/tokens", h.ListMyTokens)
		devices.DELETE("/tokens/:token", h.DeleteToken)
	}
}

func (h *Handler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var userID *uuid.UUID
	if claims, exists := c.Get("claims"); exists {
		id := claims.(*model.TokenClaims).UserID
		userID = &id
	}

	token, err := h.service.Register(c.Request.Context(), &req, userID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(token))
}

func (h *Handler) ListMyTokens(c *gin.Context) {
	claims, exists := c.Get("claims")
	if !exists {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	tokens, err := h.service.GetForUser(c.Request.Context(), claims.(*model.TokenClaims).UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) DeleteToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("token is required"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), token); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
