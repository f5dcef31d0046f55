package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("# animals\ncat\n\n  ice cream  \r\ndog\n"), 0o644))

	words, err := LoadWords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "ice cream", "dog"}, words)
}

func TestLoadWordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing\n\n"), 0o644))

	_, err := LoadWords(path)
	assert.ErrorIs(t, err, ErrNoWords)
}

func TestLoadWordsMissingFile(t *testing.T) {
	_, err := LoadWords(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestDefaultWordsUnique(t *testing.T) {
	seen := make(map[string]bool, len(DefaultWords))
	for _, w := range DefaultWords {
		assert.False(t, seen[w], w)
		seen[w] = true
	}
}
