package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/events"
	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/id"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Loopback daemon; the UI origin varies by packaging
	},
}

// Commander runs the operations clients may request
type Commander interface {
	RequestInstall(appID string) (id.JobID, error)
	RequestUpdate(appID string) (id.JobID, error)
	RequestRepair(appID string) (id.JobID, error)
	RequestUninstall(appID string) (id.JobID, error)
	Cancel(appID string) error
}

// Handler manages WebSocket connections
type Handler struct {
	commands Commander
	hub      *events.Hub
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(commands Commander, hub *events.Hub, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		commands: commands,
		hub:      hub,
		metrics:  metrics,
		logger:   logger.Component("ws"),
	}
}

// conn serializes writes; gorilla allows one concurrent writer
type conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	metrics *monitoring.Metrics
}

func (c *conn) send(msg types.WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		return err
	}
	c.metrics.RecordWSMessage("out", msg.Type)
	return nil
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *conn) sendError(appID, message string) error {
	return c.send(types.WSMessage{Type: "error", AppID: appID, Message: message})
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	filter := c.Query("appId")
	sub := h.hub.Subscribe(filter)
	defer h.hub.Unsubscribe(sub)
	h.logger.Debug("WebSocket client connected",
		zap.String("app_id", filter),
		zap.Int("subscribers", h.hub.SubscriberCount()))

	cn := &conn{ws: raw, metrics: h.metrics}
	if err := cn.send(types.WSMessage{Type: "system", AppID: filter, Message: "connected"}); err != nil {
		return
	}

	done := make(chan struct{})
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		h.pump(cn, sub, done)
	}()
	defer func() {
		close(done)
		<-pumpDone
	}()

	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg types.WSMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in", msg.Type)
		if err := h.dispatch(cn, msg); err != nil {
			return
		}
	}
}

// pump forwards hub events until done is closed or the subscription ends
func (h *Handler) pump(cn *conn, sub *events.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if err := cn.send(types.WSMessage{Type: "event", AppID: evt.AppID, Event: &evt}); err != nil {
				return
			}
		case <-ticker.C:
			if err := cn.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) dispatch(cn *conn, msg types.WSMessage) error {
	var request func(string) (id.JobID, error)
	switch types.Operation(msg.Type) {
	case types.OpInstall:
		request = h.commands.RequestInstall
	case types.OpUpdate:
		request = h.commands.RequestUpdate
	case types.OpRepair:
		request = h.commands.RequestRepair
	case types.OpUninstall:
		request = h.commands.RequestUninstall
	}

	switch {
	case request != nil:
		jobID, err := request(msg.AppID)
		if err != nil {
			return cn.sendError(msg.AppID, err.Error())
		}
		return cn.send(types.WSMessage{Type: "ack", AppID: msg.AppID, Message: jobID.String()})
	case msg.Type == "cancel":
		if err := h.commands.Cancel(msg.AppID); err != nil {
			return cn.sendError(msg.AppID, err.Error())
		}
		return cn.send(types.WSMessage{Type: "ack", AppID: msg.AppID, Message: "cancelling"})
	case msg.Type == "ping":
		return cn.send(types.WSMessage{Type: "pong"})
	default:
		return cn.sendError(msg.AppID, "unknown message type")
	}
}
