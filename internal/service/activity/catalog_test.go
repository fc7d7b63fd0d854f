package activity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ai-friend/backend/internal/model/emotion"
)

func TestSuggestionsForKnownEmotions(t *testing.T) {
	catalog := Default()
	for _, label := range emotion.All() {
		suggestions := catalog.SuggestionsFor(label)
		require.NotEmpty(t, suggestions, "label %s", label)
		assert.Equal(t, suggestions[0], catalog.FirstSuggestion(label))
	}
}

func TestSuggestionsForUnknownEmotion(t *testing.T) {
	catalog := Default()

	assert.Equal(t, []string{FallbackSuggestion}, catalog.SuggestionsFor("confused"))
	assert.Equal(t, []string{FallbackSuggestion}, catalog.SuggestionsFor(emotion.Neutral))
	assert.Equal(t, FallbackSuggestion, catalog.FirstSuggestion("confused"))
}

func TestFirstSuggestionIsStable(t *testing.T) {
	catalog := Default()
	want := "Listen to soothing music like 'Weightless' by Marconi Union."
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, catalog.FirstSuggestion(emotion.Sadness))
	}
}

func TestSuggestionsForReturnsCopy(t *testing.T) {
	catalog := Default()
	got := catalog.SuggestionsFor(emotion.Joy)
	got[0] = "mutated"

	assert.NotEqual(t, "mutated", catalog.FirstSuggestion(emotion.Joy))
}

func TestNewRejectsEmptyList(t *testing.T) {
	_, err := New(map[emotion.Label][]string{emotion.Joy: {"  "}})
	require.Error(t, err)
}

func TestLoadFileMergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := "Joy:\n  - Call a friend.\nboredom:\n  - Learn a new recipe.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	catalog, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Call a friend."}, catalog.SuggestionsFor(emotion.Joy))
	assert.Equal(t, "Learn a new recipe.", catalog.FirstSuggestion("boredom"))
	assert.Equal(t, Default().SuggestionsFor(emotion.Fear), catalog.SuggestionsFor(emotion.Fear))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFileRejectsKeysWithSameLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := "Joy:\n  - Call a friend.\njoy:\n  - Dance.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"joy"`)
}
