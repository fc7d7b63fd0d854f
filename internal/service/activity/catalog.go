// Package activity maps emotions to coping activity suggestions.
package activity

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
)

const (
	// FallbackSuggestion is returned for neutral and unrecognized emotions.
	FallbackSuggestion = "I'm here to chat with you!"
	// NoSuggestion marks a turn without a usable suggestion.
	NoSuggestion = "No suggestion available."
)

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	entries map[emotion.Label][]string
}

// New builds a catalog from the given table. Every list must be non-empty.
func New(entries map[emotion.Label][]string) (*Catalog, error) {
	copied := make(map[emotion.Label][]string, len(entries))
	for label, suggestions := range entries {
		cleaned := make([]string, 0, len(suggestions))
		for _, s := range suggestions {
			if s = strings.TrimSpace(s); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) == 0 {
			return nil, fmt.Errorf("activity list for %q is empty", label)
		}
		copied[emotion.Normalize(string(label))] = cleaned
	}
	return &Catalog{entries: copied}, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	catalog, err := New(defaultSuggestions)
	if err != nil {
		panic(err)
	}
	return catalog
}

// LoadFile merges a YAML table of the form `emotion: [suggestion, ...]`
// over the built-in entries.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read activity catalog: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse activity catalog %s: %w", path, err)
	}

	merged := make(map[emotion.Label][]string, len(defaultSuggestions)+len(overrides))
	for label, suggestions := range defaultSuggestions {
		merged[label] = suggestions
	}
	seen := make(map[emotion.Label]string, len(overrides))
	for raw, suggestions := range overrides {
		label := emotion.Normalize(raw)
		if prev, ok := seen[label]; ok {
			return nil, fmt.Errorf("activity catalog %s: keys %q and %q both map to %q", path, prev, raw, label)
		}
		seen[label] = raw
		merged[label] = suggestions
	}
	return New(merged)
}

// SuggestionsFor returns the ordered suggestions for label. The result is
// never empty; callers may modify it.
func (c *Catalog) SuggestionsFor(label emotion.Label) []string {
	suggestions, ok := c.entries[label]
	if !ok {
		return []string{FallbackSuggestion}
	}
	return append([]string(nil), suggestions...)
}

// FirstSuggestion returns the first entry of SuggestionsFor.
func (c *Catalog) FirstSuggestion(label emotion.Label) string {
	if suggestions, ok := c.entries[label]; ok {
		return suggestions[0]
	}
	return FallbackSuggestion
}

var defaultSuggestions = map[emotion.Label][]string{
	emotion.Joy: {
		"Share your happiness with a friend or family member!",
		"Engage in a creative hobby like painting or playing an instrument.",
		"Go outside for a nature walk and enjoy the moment.",
		"Listen to an upbeat playlist and dance along!",
	},
	emotion.Sadness: {
		"Listen to soothing music like 'Weightless' by Marconi Union.",
		"Try journaling your thoughts and feelings to process them.",
		"Watch a feel-good movie or read an uplifting book like 'The Alchemist'.",
		"Practice mindfulness meditation using an app like Headspace.",
	},
	emotion.Anger: {
		"Try deep-breathing exercises: inhale for 4 seconds, hold for 7, exhale for 8.",
		"Engage in a physical activity like jogging or yoga to release tension.",
		"Write down your thoughts and then rip the paper to symbolically let go.",
		"Listen to calming nature sounds or white noise to relax.",
	},
	emotion.Fear: {
		"Talk to someone you trust about your feelings and get reassurance.",
		"Write down what's worrying you and challenge negative thoughts.",
		"Try a short guided meditation for anxiety relief.",
		"Do a grounding exercise: Name 5 things you can see, 4 you can touch, 3 you can hear, 2 you can smell, 1 you can taste.",
	},
	emotion.Surprise: {
		"Reflect on why this surprise happened and embrace the excitement!",
		"Share the news with friends or family and celebrate.",
		"Write about your experience in a journal to remember it.",
		"Explore something new related to the surprise, like learning a related skill.",
	},
	emotion.Love: {
		"Express your feelings through a heartfelt message or letter.",
		"Plan a meaningful activity with someone you care about.",
		"Read a romantic novel or watch a feel-good movie about love.",
		"Practice self-love: Treat yourself to something that makes you happy.",
	},
}
