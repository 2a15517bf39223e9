package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/behark/car-wash-premium-migrated-sub002/internal/hub"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/metrics"
	"github.com/behark/car-wash-premium-migrated-sub002/internal/service"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/config"
	"github.com/behark/car-wash-premium-migrated-sub002/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers of the booking widget are served from other origins;
	// the service carries no cookies, so cross-origin upgrades are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to websocket connections and wires each
// one to a Session.
type Handler struct {
	hub          *hub.Hub
	broadcaster  *hub.Broadcaster
	holds        *service.HoldService
	rateCfg      config.RateLimitConfig
	storeTimeout time.Duration
	log          *logger.Logger
}

// NewHandler creates a new websocket Handler
func NewHandler(
	h *hub.Hub,
	broadcaster *hub.Broadcaster,
	holds *service.HoldService,
	rateCfg config.RateLimitConfig,
	storeTimeout time.Duration,
) *Handler {
	return &Handler{
		hub:          h,
		broadcaster:  broadcaster,
		holds:        holds,
		rateCfg:      rateCfg,
		storeTimeout: storeTimeout,
		log:          logger.Get().With(zap.String("component", "ws_handler")),
	}
}

// Handle is the gin handler for the websocket endpoint
func (h *Handler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.New().String()
	client := NewClient(id, conn)
	session := NewSession(
		id,
		client,
		h.hub,
		h.broadcaster,
		h.holds,
		NewActionLimiter(h.rateCfg),
		h.storeTimeout,
	)

	h.hub.Register(client)

	ctx := c.Request.Context()
	metrics.ActiveConnections.Add(ctx, 1)
	h.log.Info("connection opened", zap.String("connection_id", id))

	go client.WritePump()
	client.ReadPump(ctx, session)

	metrics.ActiveConnections.Add(ctx, -1)
	h.log.Info("connection closed", zap.String("connection_id", id))
}
