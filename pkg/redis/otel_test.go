package redis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain key", "otelkit:users", "otelkit:users"},
		{"token segment masked", "session:token:abc", "session:***"},
		{"password masked", "password123", "***"},
		{"prefix kept", "otelkit:secret:value", "otelkit:***"},
		{"case insensitive", "User:TOKEN:1", "User:***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeKey(tt.input))
		})
	}

	t.Run("long key truncated", func(t *testing.T) {
		key := strings.Repeat("k", 150)
		got := SanitizeKey(key)
		assert.Len(t, got, 103)
		assert.True(t, strings.HasSuffix(got, "..."))
	})
}

func TestExtractKeys(t *testing.T) {
	t.Run("skips command name", func(t *testing.T) {
		keys := ExtractKeys([]interface{}{"get", "otelkit:users"})
		assert.Equal(t, []string{"otelkit:users"}, keys)
	})

	t.Run("caps at five keys", func(t *testing.T) {
		args := []interface{}{"mget", "a", "b", "c", "d", "e", "f", "g"}
		assert.Len(t, ExtractKeys(args), 5)
	})

	t.Run("ignores non string args", func(t *testing.T) {
		keys := ExtractKeys([]interface{}{"set", "k", 42})
		assert.Equal(t, []string{"k"}, keys)
	})

	t.Run("nil for bare command", func(t *testing.T) {
		assert.Nil(t, ExtractKeys([]interface{}{"ping"}))
	})
}
