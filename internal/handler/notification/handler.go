package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roundbuy/notification-api/internal/handler"
	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/scheduler"
	"github.com/roundbuy/notification-api/internal/service/dispatch"
	notificationService "github.com/roundbuy/notification-api/internal/service/notification"
)

type Handler struct {
	service    notificationService.Service
	dispatcher dispatch.Service
	scheduler  *scheduler.Scheduler
}

func NewHandler(service notificationService.Service, dispatcher dispatch.Service, sched *scheduler.Scheduler) *Handler {
	return &Handler{service: service, dispatcher: dispatcher, scheduler: sched}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", h.CreateNotification)
		notifications.GET("", h.ListNotifications)
		notifications.GET("/:id", h.GetNotification)
		notifications.GET("/:id/stats", h.GetStats)
		notifications.PUT("/:id", h.UpdateNotification)
		notifications.DELETE("/:id", h.DeleteNotification)
		notifications.POST("/:id/send", h.SendNotification)
		notifications.POST("/:id/resend", h.ResendNotification)
	}

	sched := r.Group("/scheduler")
	{
		sched.GET("/status", h.SchedulerStatus)
		sched.POST("/trigger", h.TriggerScheduler)
	}
}

func (h *Handler) CreateNotification(c *gin.Context) {
	var req model.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	var createdBy *uuid.UUID
	if claims, exists := c.Get("claims"); exists {
		id := claims.(*model.TokenClaims).UserID
		createdBy = &id
	}

	n, err := h.service.Create(c.Request.Context(), &req, createdBy)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(n))
}

func (h *Handler) GetNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	n, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(n))
}

func (h *Handler) ListNotifications(c *gin.Context) {
	filters := &model.NotificationFilters{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if kind := c.Query("kind"); kind != "" {
		k := model.NotificationKind(kind)
		filters.Kind = &k
	}
	if priority := c.Query("priority"); priority != "" {
		p := model.NotificationPriority(priority)
		filters.Priority = &p
	}
	if audience := c.Query("target_audience"); audience != "" {
		a := model.TargetAudience(audience)
		filters.TargetAudience = &a
	}
	if sent := c.Query("sent"); sent != "" {
		v := sent == "true"
		filters.Sent = &v
	}

	notifications, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"notifications": notifications,
		"count":         len(notifications),
		"limit":         filters.Limit,
		"offset":        filters.Offset,
	}))
}

func (h *Handler) UpdateNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	var update model.NotificationUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	n, err := h.service.Update(c.Request.Context(), id, &update)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(n))
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) SendNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) ResendNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	result, err := h.dispatcher.Resend(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) GetStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}

func (h *Handler) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.scheduler.Status()))
}

func (h *Handler) TriggerScheduler(c *gin.Context) {
	triggered := h.scheduler.TriggerNow(c.Request.Context())
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"triggered": triggered}))
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
