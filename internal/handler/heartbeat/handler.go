package heartbeat

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roundbuy/notification-api/internal/handler"
	"github.com/roundbuy/notification-api/internal/model"
	heartbeatService "github.com/roundbuy/notification-api/internal/service/heartbeat"
)

type Handler struct {
	service heartbeatService.Service
}

func NewHandler(service heartbeatService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/heartbeat", h.Check)
}

// Check answers the client's poll. Authenticated callers are keyed by user
// id; guests must pass a device_id query parameter. An optional RFC 3339
// last_check_at overrides the server-side checkpoint.
func (h *Handler) Check(c *gin.Context) {
	lastCheckAt, ok := parseLastCheckAt(c)
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("last_check_at must be an RFC 3339 timestamp"))
		return
	}

	var (
		result interface{}
		err    error
	)

	if claims, exists := c.Get("claims"); exists {
		result, err = h.service.CheckForUser(c.Request.Context(), claims.(*model.TokenClaims).UserID, lastCheckAt)
	} else {
		deviceID := c.Query("device_id")
		if deviceID == "" {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("device_id is required for guest heartbeat"))
			return
		}
		result, err = h.service.CheckForGuest(c.Request.Context(), deviceID, lastCheckAt)
	}

	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func parseLastCheckAt(c *gin.Context) (*time.Time, bool) {
	raw := c.Query("last_check_at")
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}
