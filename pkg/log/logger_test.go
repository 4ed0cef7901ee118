package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

func TestTestLogger_Levels(t *testing.T) {
	logger, buffer := NewTestLogger(LevelInfo)

	logger.Debug("hidden debug")
	logger.Info("info message", "key1", "value1", "number", 42)
	logger.Warn("warning message")
	logger.Error("error message", fmt.Errorf("boom"), ErrorCodeKey, ErrorCandidateFailed)

	assert.NotContains(t, buffer.String(), "hidden debug")
	assert.True(t, logger.ContainsMessage("info message"))
	assert.True(t, logger.ContainsMessage("warning message"))
	assert.True(t, logger.ContainsField("key1", "value1"))
	assert.True(t, logger.ContainsField("number", 42.0))
	assert.True(t, logger.ContainsField(ErrAttrKey, "boom"))
	assert.True(t, logger.ContainsField(ErrorCodeKey, ErrorCandidateFailed))

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestTestLogger_With(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	ctxLogger := logger.With(ComponentKey, "training", ModelNameKey, "KNN")
	ctxLogger.Info("fitted", OperationKey, OperationFit)

	assert.True(t, logger.ContainsField(ComponentKey, "training"))
	assert.True(t, logger.ContainsField(ModelNameKey, "KNN"))
	assert.True(t, logger.ContainsField(OperationKey, OperationFit))
	assert.True(t, ctxLogger.Enabled(context.Background(), LevelDebug))

	logger.Clear()
	assert.False(t, logger.ContainsMessage("fitted"))
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.Debug("not emitted")
	logger.With(ComponentKey, "predict").Info("prediction",
		OperationKey, OperationPredict,
		FeaturesKey, 10,
		R2ScoreKey, 0.5,
		FeatureNamesKey, []string{"a", "b"},
	)
	logger.Error("load failed", errors.NewMissingArtifact("model"), ArtifactKey, "model")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "prediction", first["message"])
	assert.Equal(t, "predict", first[ComponentKey])
	assert.Equal(t, 10.0, first[FeaturesKey])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])
	assert.Contains(t, second[ErrAttrKey], "MissingArtifact")
	detail, ok := second[ErrAttrKey+"_detail"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ArtifactError", detail["type"])

	assert.False(t, logger.Enabled(context.Background(), LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), LevelWarn))
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerWithWriter(t *testing.T) {
	prevSlog := slog.Default()
	prevLogger := GetLogger()
	defer func() {
		slog.SetDefault(prevSlog)
		SetLogger(prevLogger)
		errors.SetZerologWarnFunc(nil)
	}()

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerWithWriter("info", &buf))

	slog.Error("slog record", ErrAttr(errors.NewValueError("op", "bad")))
	assert.Contains(t, buf.String(), `"severity":"ERROR"`)
	assert.Contains(t, buf.String(), StacktraceAttrKey)

	errors.Warn(errors.NewConvergenceWarning("Lasso", 1000, ""))
	assert.Contains(t, buf.String(), "Lasso failed to converge")

	assert.Error(t, SetupLoggerWithWriter("loud", &buf))
}
