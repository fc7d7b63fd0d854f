package emotion

import "strings"

// Label 表示情绪分类器输出的情绪标签。
type Label string

const (
	Joy      Label = "joy"
	Sadness  Label = "sadness"
	Anger    Label = "anger"
	Fear     Label = "fear"
	Surprise Label = "surprise"
	Love     Label = "love"
	Neutral  Label = "neutral"
)

var templated = map[Label]struct{}{
	Joy:      {},
	Sadness:  {},
	Anger:    {},
	Fear:     {},
	Surprise: {},
	Love:     {},
}

// All 返回封闭标签集合，Neutral 位于最后。
func All() []Label {
	return []Label{Joy, Sadness, Anger, Fear, Surprise, Love, Neutral}
}

// Normalize trims and lowercases a classifier label. Unknown labels are kept
// as-is so they can be recorded; callers treat them like Neutral.
func Normalize(raw string) Label {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Neutral
	}
	return Label(normalized)
}

// Known reports whether the label has its own templates and activities.
// Neutral and unrecognized labels take the fallback path.
func (l Label) Known() bool {
	_, ok := templated[l]
	return ok
}

func (l Label) String() string {
	return string(l)
}
