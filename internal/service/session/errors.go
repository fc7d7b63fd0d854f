package session

import (
	"errors"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
)

var (
	ErrClassifierUnavailable = errors.New("emotion classifier unavailable")
	ErrGeneratorUnavailable  = errors.New("reply generator unavailable")
)

// ClassificationError reports that no emotion label could be produced.
// Nothing was recorded.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return "classification failed: " + e.Err.Error()
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// GenerationError reports that no base reply could be produced. Nothing was
// recorded.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError reports that the composed exchange was not recorded.
// Exchange still carries the response so it can be shown to the user.
type PersistenceError struct {
	Exchange chat.Exchange
	Err      error
}

func (e *PersistenceError) Error() string {
	return "exchange not recorded: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Stage names the pipeline step that produced err, or "" for errors that did
// not come from HandleTurn.
func Stage(err error) string {
	var (
		classErr *ClassificationError
		genErr   *GenerationError
		persErr  *PersistenceError
	)
	switch {
	case errors.As(err, &classErr):
		return "classification"
	case errors.As(err, &genErr):
		return "generation"
	case errors.As(err, &persErr):
		return "persistence"
	default:
		return ""
	}
}
