package xlog

import (
	"testing"
	"time"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestAntsXLogger_ParentLogLevelChanged(t *testing.T) {
	var logger *AntsXLogger
	logger.Printf("test %d", 123)

	opt, w := withXLoggerMemWriter(t)
	parentLogger := NewXLogger(opt, WithXLoggerLevel(LogLevelDebug))
	logger = NewAntsXLogger(parentLogger)
	logger.Printf("test %d", 123)
	parentLogger.IncreaseLogLevel(zapcore.FatalLevel)
	logger.Printf("test %d", 456)
	require.NoError(t, parentLogger.Sync())

	lines := w.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, "test 123", lines[0]["msg"])
	require.Equal(t, "Ants", lines[0]["component"])
	_, ok := lines[0]["callAt"]
	require.False(t, ok)
}

func TestAntsXLogger_AntsPool(t *testing.T) {
	opt, w := withXLoggerMemWriter(t)
	parentLogger := NewXLogger(opt, WithXLoggerLevel(LogLevelDebug))
	logger := NewAntsXLogger(parentLogger)

	p, err := antsv2.NewPool(10, antsv2.WithLogger(logger))
	require.NoError(t, err)
	defer p.Release()
	require.NoError(t, p.Submit(func() {
		panic("xlogger panic in ants pool")
	}))
	require.Eventually(t, func() bool {
		return len(w.Lines()) > 0
	}, time.Second, 10*time.Millisecond)
}
