package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docflow.log")

	log, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	log.Info("sweep finished", zap.Int("transitioned", 3))
	Sync(log)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"sweep finished"`)
	assert.Contains(t, string(data), `"transitioned":3`)
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestDocumentFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	id := uuid.New()

	log.Info("transitioned", append(Document("invoice", id), Action("pay"), Status("PAID"))...)

	entry := recorded.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "invoice", fields[FieldKind])
	assert.Equal(t, id.String(), fields[FieldDocumentID])
	assert.Equal(t, "pay", fields[FieldAction])
	assert.Equal(t, "PAID", fields[FieldStatus])
}
