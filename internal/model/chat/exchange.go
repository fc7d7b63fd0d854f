package chat

import (
	"time"

	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
)

// Exchange persists a single user turn. Records are append-only.
type Exchange struct {
	ID        int64         `json:"id"`
	User      string        `json:"user"`
	Message   string        `json:"message"`
	Response  string        `json:"response"`
	Emotion   emotion.Label `json:"emotion"`
	Activity  string        `json:"activity"`
	CreatedAt time.Time     `json:"timestamp"`
}
