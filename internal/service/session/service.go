// Package session runs single chat turns end to end and serves history.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/ai-friend/backend/internal/model/chat"
	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
	"github.com/zhouzirui/ai-friend/backend/internal/service/activity"
	"github.com/zhouzirui/ai-friend/backend/internal/service/composer"
	"github.com/zhouzirui/ai-friend/backend/internal/service/ledger"
	logx "github.com/zhouzirui/ai-friend/backend/pkg/logger"
)

// DefaultUser labels turns submitted without a username.
const DefaultUser = "Guest"

// DefaultTimeout bounds the classifier and generator calls of one turn.
const DefaultTimeout = 30 * time.Second

// Classifier maps an utterance to an emotion label.
type Classifier interface {
	Classify(ctx context.Context, text string) (emotion.Label, error)
}

// Generator produces a base reply for an utterance.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Dependencies are owned by the caller and must outlive the Service.
type Dependencies struct {
	Classifier Classifier
	Generator  Generator
	Catalog    *activity.Catalog
	Composer   *composer.Composer
	Ledger     ledger.Ledger
}

// Service sequences a turn: classify and generate, pick an activity,
// compose, append to the ledger.
type Service struct {
	classifier Classifier
	generator  Generator
	catalog    *activity.Catalog
	composer   *composer.Composer
	ledger     ledger.Ledger

	timeout time.Duration
	clock   func() time.Time

	mu   sync.Mutex
	last time.Time
}

type Option func(*Service)

// WithTimeout bounds the model calls of each turn. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService wires the turn pipeline. A nil catalog or composer gets the
// defaults; a nil classifier or generator fails every turn.
func NewService(deps Dependencies, opts ...Option) *Service {
	s := &Service{
		classifier: deps.Classifier,
		generator:  deps.Generator,
		catalog:    deps.Catalog,
		composer:   deps.Composer,
		ledger:     deps.Ledger,
		timeout:    DefaultTimeout,
		clock:      time.Now,
	}
	if s.catalog == nil {
		s.catalog = activity.Default()
	}
	if s.composer == nil {
		s.composer = composer.New()
	}
	if s.ledger == nil {
		s.ledger = ledger.NewMemoryLedger()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleTurn runs one turn for user. utterance must be non-empty; rejecting
// empty input is the caller's job.
//
// On *ClassificationError and *GenerationError nothing is recorded. On
// *PersistenceError the returned Exchange holds the composed response but was
// not recorded.
func (s *Service) HandleTurn(ctx context.Context, user, utterance string) (chat.Exchange, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		user = DefaultUser
	}
	turnID := uuid.NewString()

	label, rawReply, err := s.infer(ctx, utterance)
	if err != nil {
		logx.Warn().Err(err).Str("turn", turnID).Str("user", user).Msg("turn failed before composition")
		return chat.Exchange{}, err
	}

	suggestion := s.catalog.FirstSuggestion(label)
	if strings.TrimSpace(suggestion) == "" {
		suggestion = activity.NoSuggestion
	}

	exchange := chat.Exchange{
		User:      user,
		Message:   utterance,
		Response:  s.composer.Compose(rawReply, label, suggestion),
		Emotion:   label,
		Activity:  suggestion,
		CreatedAt: s.now(),
	}

	if err := s.ledger.Append(ctx, &exchange); err != nil {
		logx.Error().Err(err).Str("turn", turnID).Str("user", user).Msg("failed to record exchange")
		return exchange, &PersistenceError{Exchange: exchange, Err: err}
	}

	logx.Debug().
		Str("turn", turnID).
		Str("user", user).
		Int64("exchange_id", exchange.ID).
		Str("emotion", string(label)).
		Msg("turn recorded")
	return exchange, nil
}

// History returns the user's exchanges, newest first. Every call re-reads the
// ledger.
func (s *Service) History(ctx context.Context, user string) ([]chat.Exchange, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		user = DefaultUser
	}
	return s.ledger.QueryByUser(ctx, user)
}

// infer runs the classifier and the generator concurrently. The first
// failure cancels the sibling call and is the one reported.
func (s *Service) infer(ctx context.Context, utterance string) (emotion.Label, string, error) {
	if s.classifier == nil {
		return "", "", &ClassificationError{Err: ErrClassifierUnavailable}
	}
	if s.generator == nil {
		return "", "", &GenerationError{Err: ErrGeneratorUnavailable}
	}

	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		once  sync.Once
		first error
		wg    sync.WaitGroup
		label emotion.Label
		reply string
	)
	fail := func(err error) {
		once.Do(func() {
			first = err
			cancel()
		})
	}

	var classified, generated atomic.Bool

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer classified.Store(true)
		l, err := s.classifier.Classify(ctx, utterance)
		if err != nil {
			fail(&ClassificationError{Err: err})
			return
		}
		label = l
	}()
	go func() {
		defer wg.Done()
		defer generated.Store(true)
		r, err := s.generator.Generate(ctx, utterance)
		if err != nil {
			fail(&GenerationError{Err: err})
			return
		}
		reply = r
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// A collaborator that ignores ctx is abandoned instead of awaited.
		switch {
		case !generated.Load():
			fail(&GenerationError{Err: ctx.Err()})
		case !classified.Load():
			fail(&ClassificationError{Err: ctx.Err()})
		default:
			<-done
		}
	}

	if first != nil {
		return "", "", first
	}
	return emotion.Normalize(string(label)), reply, nil
}

// now returns a timestamp that never goes backwards within the process.
func (s *Service) now() time.Time {
	t := s.clock().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}
