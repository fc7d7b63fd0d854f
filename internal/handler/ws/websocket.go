package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
	"github.com/zhouzirui/ai-friend/backend/internal/service/session"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
	"github.com/zhouzirui/ai-friend/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// TurnService 是 WebSocket 会话依赖的对话能力。
type TurnService interface {
	HandleTurn(ctx context.Context, user, utterance string) (chat.Exchange, error)
	History(ctx context.Context, user string) ([]chat.Exchange, error)
}

// Handler WebSocket对话处理器
type Handler struct {
	sessions TurnService
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(sessions TurnService) *Handler {
	return &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{user}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TurnMessage 是 type=turn 的负载。
type TurnMessage struct {
	Message string `json:"message"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	User      string      `json:"user,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorPayload 描述失败的请求。
type ErrorPayload struct {
	Message  string         `json:"message"`
	Stage    string         `json:"stage,omitempty"`
	Recorded *bool          `json:"recorded,omitempty"`
	Exchange *chat.Exchange `json:"exchange,omitempty"`
}

// conn 串行化写操作，gorilla 连接只允许一个并发写者。
type conn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := utils.URLParam(r, "user")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user = strings.TrimSpace(user)
	if user == "" {
		user = session.DefaultUser
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &conn{Conn: raw}
	defer c.Close()

	connID := uuid.NewString()
	logx.Info().Str("conn", connID).Str("user", user).Msg("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, c)

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logx.Warn().Err(err).Str("conn", connID).Msg("websocket read error")
			}
			logx.Info().Str("conn", connID).Str("user", user).Msg("websocket closed")
			return
		}

		c.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleMessage(ctx, c, user, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, user string, msg *inboundMessage) {
	switch msg.Type {
	case "turn":
		var payload TurnMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				h.sendError(c, user, ErrorPayload{Message: "invalid turn payload"})
				return
			}
		}
		if strings.TrimSpace(payload.Message) == "" {
			h.sendError(c, user, ErrorPayload{Message: "message is required"})
			return
		}
		h.handleTurn(ctx, c, user, payload.Message)
	case "history":
		exchanges, err := h.sessions.History(ctx, user)
		if err != nil {
			logx.Error().Err(err).Str("user", user).Msg("failed to load history")
			h.sendError(c, user, ErrorPayload{Message: "failed to load history"})
			return
		}
		if exchanges == nil {
			exchanges = []chat.Exchange{}
		}
		h.send(c, outgoingMessage{Type: "history", User: user, Data: exchanges})
	default:
		h.sendError(c, user, ErrorPayload{Message: "unknown message type: " + msg.Type})
	}
}

func (h *Handler) handleTurn(ctx context.Context, c *conn, user, message string) {
	exchange, err := h.sessions.HandleTurn(ctx, user, message)
	if err == nil {
		h.send(c, outgoingMessage{Type: "exchange", User: user, Data: exchange})
		return
	}

	payload := ErrorPayload{Message: err.Error(), Stage: session.Stage(err)}
	var persErr *session.PersistenceError
	if errors.As(err, &persErr) {
		recorded := false
		payload.Recorded = &recorded
		payload.Exchange = &persErr.Exchange
	}
	h.sendError(c, user, payload)
}

func (h *Handler) send(c *conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	if err := c.writeJSON(msg); err != nil {
		logx.Debug().Err(err).Str("type", msg.Type).Msg("websocket write failed")
	}
}

func (h *Handler) sendError(c *conn, user string, payload ErrorPayload) {
	h.send(c, outgoingMessage{Type: "error", User: user, Data: payload})
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
