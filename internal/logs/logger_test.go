package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogJSON(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	original := L()
	SetLogger(zap.New(core))
	defer SetLogger(original)

	tests := []struct {
		name     string
		level    string
		expected string
	}{
		{name: "warn", level: "WARN", expected: "warn"},
		{name: "error", level: "ERROR", expected: "error"},
		{name: "unknown falls back to info", level: "FATAL-ISH", expected: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			LogJSON(tt.level, "Article not found", map[string]interface{}{
				"route":     "/api/articles/:id",
				"articleID": "a1",
			})

			entries := recorded.TakeAll()
			assert.Len(t, entries, 1)
			assert.Equal(t, tt.expected, entries[0].Level.String())
			assert.Equal(t, "Article not found", entries[0].Message)
			assert.Equal(t, "a1", entries[0].ContextMap()["articleID"])
		})
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	l, err := New("not-a-level")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}
