package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
	"github.com/zhouzirui/ai-friend/backend/internal/service/session"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
	"github.com/zhouzirui/ai-friend/backend/pkg/utils"
)

// TurnService 是处理器依赖的会话能力。
type TurnService interface {
	HandleTurn(ctx context.Context, user, utterance string) (chat.Exchange, error)
	History(ctx context.Context, user string) ([]chat.Exchange, error)
}

// Handler 对话服务的HTTP处理器
type Handler struct {
	sessions TurnService
}

// New 创建对话处理器
func New(sessions TurnService) *Handler {
	return &Handler{sessions: sessions}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/turns", h.handleTurn)
	r.Get("/users/{user}/history", h.handleHistory)
}

type turnRequest struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// TurnResponse 是一次对话的返回体。Recorded 为 false 时该条未写入历史。
type TurnResponse struct {
	chat.Exchange
	Recorded bool   `json:"recorded"`
	Error    string `json:"error,omitempty"`
}

// HistoryResponse 用户历史，按时间倒序。
type HistoryResponse struct {
	User      string          `json:"user"`
	Exchanges []chat.Exchange `json:"exchanges"`
}

// handleTurn 处理一次用户输入
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var payload turnRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	exchange, err := h.sessions.HandleTurn(r.Context(), payload.User, payload.Message)
	if err != nil {
		var persErr *session.PersistenceError
		if errors.As(err, &persErr) {
			utils.RespondJSON(w, http.StatusInternalServerError, TurnResponse{
				Exchange: persErr.Exchange,
				Recorded: false,
				Error:    err.Error(),
			})
			return
		}
		utils.RespondError(w, StatusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, TurnResponse{Exchange: exchange, Recorded: true})
}

// handleHistory 返回用户的全部历史
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, err := utils.URLParam(r, "user")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user = strings.TrimSpace(user)
	if user == "" {
		user = session.DefaultUser
	}

	exchanges, err := h.sessions.History(r.Context(), user)
	if err != nil {
		logx.Error().Err(err).Str("user", user).Msg("failed to load history")
		utils.RespondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if exchanges == nil {
		exchanges = []chat.Exchange{}
	}

	utils.RespondJSON(w, http.StatusOK, HistoryResponse{User: user, Exchanges: exchanges})
}

// StatusFor 将会话错误映射为 HTTP 状态码。
func StatusFor(err error) int {
	switch session.Stage(err) {
	case "classification", "generation":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
