// Package ws streams kernel lifecycle events over WebSocket.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/NanoOS/kernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/kernel"
	"github.com/GriffinCanCode/NanoOS/kernel/internal/logging"
)

const writeTimeout = 10 * time.Second

// Stream serves the event stream endpoint.
type Stream struct {
	kernel   *kernel.Kernel
	log      *logging.Logger
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader
}

// NewStream creates the WebSocket handler.
func NewStream(k *kernel.Kernel, log *logging.Logger, metrics *monitoring.Metrics) *Stream {
	if log == nil {
		log = logging.Nop()
	}
	return &Stream{
		kernel:  k,
		log:     log,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request and forwards every kernel event to
// the client until it disconnects. A client that cannot keep up loses
// events rather than stalling the kernel.
func (s *Stream) HandleConnection(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.New().String()
	if s.metrics != nil {
		s.metrics.IncWSConnections()
		defer s.metrics.DecWSConnections()
	}
	s.log.Info("event stream connected", zap.String("conn", connID))
	defer s.log.Info("event stream disconnected", zap.String("conn", connID))

	events := s.kernel.Subscribe()
	defer s.kernel.Unsubscribe(events)

	// Reader pump: clients send nothing meaningful, but control frames must
	// be processed and a read error is the disconnect signal.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	welcome := map[string]interface{}{
		"type":       "system",
		"connection": connID,
		"message":    "kernel event stream",
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(welcome); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			payload := map[string]interface{}{
				"type":  "event",
				"event": ev,
			}
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
