package emotion

import (
	"context"
	"strings"

	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
)

// Decision 给出关键词情绪识别结果。
type Decision struct {
	Emotion emotion.Label
	Score   int
}

var keywordBuckets = map[emotion.Label][]string{
	emotion.Joy: {
		"happy", "glad", "great", "awesome", "amazing", "wonderful", "excited", "fantastic",
		"thrilled", "delighted", "yay", "promoted", "passed", "won", "celebrate", "lol", "haha",
		"开心", "高兴", "快乐", "太棒了",
	},
	emotion.Sadness: {
		"sad", "lost", "lonely", "alone", "cry", "crying", "depressed", "down", "miss",
		"hurt", "heartbroken", "grief", "unhappy", "tired of", "hopeless", "upset", "sorrow",
		"难过", "伤心", "失落", "孤单",
	},
	emotion.Anger: {
		"angry", "furious", "mad", "annoyed", "hate", "rage", "pissed", "unfair", "irritated",
		"frustrated", "fed up", "sick of", "outraged",
		"生气", "愤怒", "气死",
	},
	emotion.Fear: {
		"scared", "afraid", "anxious", "worried", "nervous", "panic", "terrified", "fear",
		"frightened", "stress", "stressed", "what if", "dread",
		"害怕", "担心", "焦虑",
	},
	emotion.Surprise: {
		"surprised", "shocked", "unexpected", "can't believe", "cannot believe", "no way",
		"wow", "whoa", "suddenly", "out of nowhere",
		"惊讶", "没想到", "哇",
	},
	emotion.Love: {
		"love", "adore", "crush", "in love", "care about", "grateful for you", "sweetheart",
		"darling", "married", "engaged", "boyfriend", "girlfriend",
		"爱", "喜欢你",
	},
}

var punctuationBoost = map[emotion.Label]int{
	emotion.Surprise: 2,
	emotion.Joy:      1,
}

// Analyze scores text against the keyword buckets. Text without any hit is
// Neutral.
func Analyze(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Emotion: emotion.Neutral}
	}

	padded := " " + strings.Join(strings.FieldsFunc(normalized, isSeparator), " ") + " "

	scores := make(map[emotion.Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if matches(normalized, padded, word) {
				scores[label] += 3
			}
		}
	}

	// 标点只在已有关键词命中时加权。
	if len(scores) > 0 {
		exclamations := strings.Count(text, "!")
		questions := strings.Count(text, "?")
		if exclamations > 0 && questions > 0 {
			scores[emotion.Surprise] += punctuationBoost[emotion.Surprise]
		} else if exclamations > 0 {
			scores[emotion.Joy] += punctuationBoost[emotion.Joy]
		}
	}

	best := Decision{Emotion: emotion.Neutral}
	for _, label := range emotion.All() {
		if s := scores[label]; s > best.Score {
			best = Decision{Emotion: label, Score: s}
		}
	}
	return best
}

// KeywordClassifier adapts Analyze to the classifier contract. It never fails.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string) (emotion.Label, error) {
	return Analyze(text).Emotion, nil
}

// matches does whole-word matching for ASCII keywords and substring matching
// otherwise.
func matches(normalized, padded, word string) bool {
	if !isASCII(word) {
		return strings.Contains(normalized, word)
	}
	return strings.Contains(padded, " "+word+" ")
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '.', ',', '!', '?', ';', ':', '"', '(', ')':
		return true
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
