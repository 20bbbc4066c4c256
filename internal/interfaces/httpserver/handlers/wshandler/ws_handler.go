package wshandler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chat-insights-server/internal/domain/insight"
	"chat-insights-server/internal/infrastructure/logger"
	"chat-insights-server/internal/realtime"
)

// Options bounds the websocket transport.
type Options struct {
	ReadLimit        int64
	WriteTimeout     time.Duration
	SummarizeTimeout time.Duration
}

// WSHandler upgrades chat websocket requests and hands them to a session.
type WSHandler struct {
	registry *realtime.Registry
	store    realtime.Store
	analyzer insight.Analyzer
	opts     Options
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(registry *realtime.Registry, store realtime.Store, analyzer insight.Analyzer, opts Options) *WSHandler {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 65536
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &WSHandler{
		registry: registry,
		store:    store,
		analyzer: analyzer,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser origins are already filtered by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: logger.Component("handler.ws"),
	}
}

// Chat handles GET /ws/chat/:conversation_id. The connection is served until
// the client disconnects.
func (h *WSHandler) Chat(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	userID := c.Query("userId")

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("websocket upgrade failed")
		return
	}
	ws.SetReadLimit(h.opts.ReadLimit)

	session := realtime.NewSession(realtime.SessionConfig{
		ConversationID:   conversationID,
		UserID:           userID,
		Conn:             newWSConn(ws, h.opts.WriteTimeout),
		Registry:         h.registry,
		Store:            h.store,
		Analyzer:         h.analyzer,
		SummarizeTimeout: h.opts.SummarizeTimeout,
	})
	session.Run(c.Request.Context())
}

// wsConn adapts a gorilla connection to the session transport. Gorilla
// allows only one concurrent writer, so Send serializes writes; broadcasts
// and session replies arrive from different goroutines.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
