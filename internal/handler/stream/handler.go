package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
	"github.com/zhouzirui/ai-friend/backend/internal/service/session"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
	"github.com/zhouzirui/ai-friend/backend/pkg/utils"
)

// ErrStreamingUnsupported is returned when the writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// TurnRunner runs one turn.
type TurnRunner interface {
	HandleTurn(ctx context.Context, user, utterance string) (chat.Exchange, error)
}

// Handler streams the progress of a turn via Server-Sent Events
type Handler struct {
	sessions TurnRunner
}

// New creates a new stream handler
func New(sessions TurnRunner) *Handler {
	return &Handler{sessions: sessions}
}

// StreamResponse is the payload of one event
type StreamResponse struct {
	User     string         `json:"user,omitempty"`
	Emotion  string         `json:"emotion,omitempty"`
	Activity string         `json:"activity,omitempty"`
	Exchange *chat.Exchange `json:"exchange,omitempty"`
	Recorded *bool          `json:"recorded,omitempty"`
	Stage    string         `json:"stage,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ServeHTTP handles GET /stream?user=&message=
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	message := r.URL.Query().Get("message")
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, user, message); err != nil {
		if errors.Is(err, ErrStreamingUnsupported) {
			utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		logx.Warn().Err(err).Str("stage", session.Stage(err)).Msg("stream turn failed")
	}
}

// HandleStreamRequest runs one turn and reports it as start, emotion, message
// and end events. A failed turn ends with an error event naming the stage.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, user, message string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	utils.SetupSSEHeaders(w)

	user = strings.TrimSpace(user)
	if user == "" {
		user = session.DefaultUser
	}
	utils.SendSSEEvent(w, flusher, "start", StreamResponse{User: user})

	exchange, err := h.sessions.HandleTurn(ctx, user, message)
	if err != nil {
		var persErr *session.PersistenceError
		if !errors.As(err, &persErr) {
			h.sendError(w, flusher, err)
			return err
		}
		exchange = persErr.Exchange
	}

	utils.SendSSEEvent(w, flusher, "emotion", StreamResponse{
		User:     exchange.User,
		Emotion:  string(exchange.Emotion),
		Activity: exchange.Activity,
	})
	utils.SendSSEEvent(w, flusher, "message", StreamResponse{Exchange: &exchange})

	if err != nil {
		h.sendError(w, flusher, err)
		return err
	}

	recorded := true
	utils.SendSSEEvent(w, flusher, "end", StreamResponse{User: exchange.User, Recorded: &recorded})
	return nil
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, err error) {
	resp := StreamResponse{
		Stage: session.Stage(err),
		Error: fmt.Sprintf("turn failed: %v", err),
	}
	if resp.Stage == "persistence" {
		recorded := false
		resp.Recorded = &recorded
	}
	utils.SendSSEEvent(w, flusher, "error", resp)
}
