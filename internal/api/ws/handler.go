package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/grading"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

const (
	writeTimeout = 5 * time.Second
	maxMessage   = 512 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is a client to server frame
type Message struct {
	Type  string `json:"type"`
	Code  string `json:"code,omitempty"`
	RunID int64  `json:"run_id,omitempty"`
}

// Handler streams a session's run transitions over WebSocket
type Handler struct {
	coordinator *grading.Coordinator
	metrics     *monitoring.Metrics
	log         *logging.Logger
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(coordinator *grading.Coordinator, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{
		coordinator: coordinator,
		metrics:     metrics,
		log:         log.Named("ws"),
	}
}

// conn serializes writes; gorilla allows one concurrent writer
type conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	metrics *monitoring.Metrics
}

func (c *conn) send(msgType string, data gin.H) error {
	if data == nil {
		data = gin.H{}
	}
	data["type"] = msgType
	data["timestamp"] = time.Now().Unix()

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(data); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", msgType)
	}
	return nil
}

func (c *conn) sendError(msg string) error {
	return c.send("error", gin.H{"message": msg})
}

func (c *conn) close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(writeTimeout))
}

// HandleConnection upgrades GET /sessions/:id/stream
func (h *Handler) HandleConnection(c *gin.Context) {
	s, err := h.coordinator.Session(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxMessage)
	cn := &conn{ws: ws, metrics: h.metrics}
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	// Subscribe before the hello so no transition falls between them
	events, cancel := s.Subscribe()
	defer cancel()

	hello := gin.H{
		"session_id": s.ID(),
		"exercise":   s.Exercise().Summary(),
	}
	if run, err := s.Latest(); err == nil {
		hello["run"] = run
	}
	if err := cn.send("system", hello); err != nil {
		ws.Close()
		return
	}

	ctx := c.Request.Context()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg Message
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			if h.metrics != nil {
				h.metrics.RecordWSMessage("in", msg.Type)
			}
			h.handleMessage(ctx, cn, s, msg)
		}
	}()
	defer func() {
		ws.Close()
		<-done
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				cn.send("closed", gin.H{"session_id": s.ID()})
				cn.close("session closed")
				return
			}
			if err := cn.send("run", h.eventPayload(s, ev)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// eventPayload attaches the full run to terminal transitions
func (h *Handler) eventPayload(s *grading.Session, ev types.RunEvent) gin.H {
	payload := gin.H{"event": ev}
	if ev.Status.Terminal() {
		if run, err := s.Run(ev.RunID); err == nil {
			payload["run"] = run
		}
	}
	return payload
}

func (h *Handler) handleMessage(ctx context.Context, cn *conn, s *grading.Session, msg Message) {
	switch msg.Type {
	case "ping":
		cn.send("pong", nil)
	case "submit":
		runID, err := s.Submit(ctx, msg.Code)
		if err != nil && runID == 0 {
			cn.sendError(err.Error())
			return
		}
		data := gin.H{"run_id": runID}
		if err != nil {
			data["error"] = err.Error()
		}
		cn.send("submitted", data)
	case "run":
		run, err := s.Run(msg.RunID)
		if err != nil {
			cn.sendError(err.Error())
			return
		}
		cn.send("run_snapshot", gin.H{"run": run})
	default:
		cn.sendError("unknown message type")
	}
}
