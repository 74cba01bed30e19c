package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level    string
		format   string
		expected zapcore.Level
	}{
		{"debug", "console", zapcore.DebugLevel},
		{"info", "json", zapcore.InfoLevel},
		{"warn", "json", zapcore.WarnLevel},
		{"error", "console", zapcore.ErrorLevel},
		{"unknown", "json", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, tt.format)
			assert.NotNil(t, l)
			assert.True(t, l.Core().Enabled(tt.expected))
			if tt.expected > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.expected-1))
			}
		})
	}
}

func TestZapAdapter_FieldsAreCarried(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).
		WithFields(map[string]interface{}{"taskType": "compute-ranking"})

	log.Info("ranking run finished", map[string]interface{}{"calculated": 3})
	log.WithError(errors.New("boom")).Error("business failed", map[string]interface{}{
		"businessId": "b-1",
	})

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "compute-ranking", entries[0].ContextMap()["taskType"])
	assert.EqualValues(t, 3, entries[0].ContextMap()["calculated"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Equal(t, "b-1", entries[1].ContextMap()["businessId"])
}

func TestNewNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.Debug("ignored", nil)
		log.With(map[string]interface{}{"k": "v"}).Warn("ignored", nil)
	})
}
