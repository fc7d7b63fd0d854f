// Package composer personalizes base replies with emotion-specific wording
// and occasionally appends an activity suggestion.
package composer

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
)

const (
	// Placeholder marks where the base reply is inserted in a template.
	Placeholder = "{reply}"
	// Activity marks where the suggestion is inserted in an activity phrase.
	Activity = "{activity}"

	// DefaultActivityProbability is the chance of appending an activity phrase.
	DefaultActivityProbability = 0.3

	// EmptyReplyFallback is returned when composition would yield a blank message.
	EmptyReplyFallback = "I'm here to listen."
)

// Composer is safe for concurrent use.
type Composer struct {
	mu          sync.Mutex
	rng         *rand.Rand
	templates   map[emotion.Label][]string
	phrases     []string
	probability float64
}

type Option func(*Composer)

// WithSeed makes composition reproducible.
func WithSeed(seed uint64) Option {
	return func(c *Composer) {
		c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithSource uses src for all random draws.
func WithSource(src rand.Source) Option {
	return func(c *Composer) {
		c.rng = rand.New(src)
	}
}

// WithActivityProbability overrides the activity append chance. Values are
// clamped to [0, 1].
func WithActivityProbability(p float64) Option {
	return func(c *Composer) {
		switch {
		case p < 0:
			p = 0
		case p > 1:
			p = 1
		}
		c.probability = p
	}
}

// WithTemplates replaces the template pool for one emotion. Templates without
// the placeholder get the reply prepended.
func WithTemplates(label emotion.Label, templates ...string) Option {
	return func(c *Composer) {
		pool := make([]string, 0, len(templates))
		for _, tmpl := range templates {
			if strings.Count(tmpl, Placeholder) != 1 {
				tmpl = Placeholder + " " + strings.ReplaceAll(tmpl, Placeholder, "")
			}
			pool = append(pool, tmpl)
		}
		c.templates[label] = pool
	}
}

// New creates a composer with the built-in templates and phrases.
func New(opts ...Option) *Composer {
	c := &Composer{
		templates:   make(map[emotion.Label][]string, len(defaultTemplates)),
		phrases:     append([]string(nil), defaultActivityPhrases...),
		probability: DefaultActivityProbability,
	}
	for label, pool := range defaultTemplates {
		c.templates[label] = append([]string(nil), pool...)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		seed := uint64(time.Now().UnixNano())
		c.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return c
}

// Compose wraps rawReply in a randomly chosen template for label and, with
// the configured probability, appends a phrase suggesting activity. Labels
// without templates pass rawReply through unchanged.
func (c *Composer) Compose(rawReply string, label emotion.Label, activity string) string {
	c.mu.Lock()
	template := c.pickTemplate(label)
	appendActivity := strings.TrimSpace(activity) != "" && c.rng.Float64() < c.probability
	var phrase string
	if appendActivity {
		phrase = c.phrases[c.rng.IntN(len(c.phrases))]
	}
	c.mu.Unlock()

	blank := strings.TrimSpace(rawReply) == ""
	composed := strings.Replace(template, Placeholder, rawReply, 1)
	if blank {
		composed = strings.Join(strings.Fields(composed), " ")
	}

	if appendActivity {
		suffix := strings.Replace(phrase, Activity, activity, 1)
		if composed == "" {
			composed = suffix
		} else {
			composed += " " + suffix
		}
	}

	if blank && strings.TrimSpace(composed) == "" {
		return EmptyReplyFallback
	}
	return composed
}

// ActivityPhrases returns the wrappers used for activity suggestions.
func (c *Composer) ActivityPhrases() []string {
	return append([]string(nil), c.phrases...)
}

// Templates returns the template pool for label, nil when the label falls
// back to the identity template.
func (c *Composer) Templates(label emotion.Label) []string {
	return append([]string(nil), c.templates[label]...)
}

// pickTemplate must be called with c.mu held.
func (c *Composer) pickTemplate(label emotion.Label) string {
	pool := c.templates[label]
	if len(pool) == 0 {
		return Placeholder
	}
	return pool[c.rng.IntN(len(pool))]
}

var defaultTemplates = map[emotion.Label][]string{
	emotion.Joy: {
		"That's fantastic! {reply}",
		"I'm so happy to hear that! {reply}",
		"Wonderful! {reply} Let's keep that positive energy going!",
		"That's awesome! {reply} What else has been making you happy?",
	},
	emotion.Sadness: {
		"I understand how you feel. {reply}",
		"It's okay to feel down sometimes. {reply} Things will get better.",
		"I'm here for you. {reply}",
		"That sounds tough. {reply} Remember to be kind to yourself during difficult times.",
	},
	emotion.Anger: {
		"I can see why that would be frustrating. {reply}",
		"It's understandable to feel that way. {reply} Let's try to work through this.",
		"That would upset me too. {reply}",
		"I hear your frustration. {reply} Would it help to talk more about what happened?",
	},
	emotion.Fear: {
		"It's okay to feel anxious about that. {reply}",
		"Many people would feel the same way. {reply}",
		"That sounds concerning. {reply} Let's think about this together.",
		"I understand your worry. {reply} What would help you feel more secure?",
	},
	emotion.Surprise: {
		"Wow! {reply} That's unexpected!",
		"I didn't see that coming either! {reply}",
		"That's quite a surprise! {reply}",
		"Really? {reply} Tell me more about how that happened!",
	},
	emotion.Love: {
		"That's so heartwarming! {reply}",
		"I'm touched hearing that. {reply}",
		"What a beautiful sentiment! {reply}",
		"Love is such a special feeling. {reply}",
	},
}

var defaultActivityPhrases = []string{
	"By the way, have you considered this? {activity}",
	"You might enjoy: {activity}",
	"Something that might help: {activity}",
	"A suggestion for you: {activity}",
}
