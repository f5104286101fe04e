package xlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func TestFxXLogger_LogEvent(t *testing.T) {
	var logger *FxXLogger
	logger.LogEvent(&fxevent.Started{})

	opt, w := withXLoggerMemWriter(t)
	parentLogger := NewXLogger(opt, WithXLoggerLevel(LogLevelInfo))
	logger = NewFxXLogger(parentLogger)
	logger.LogEvent(&fxevent.Started{})
	logger.LogEvent(&fxevent.Started{Err: errors.New("start failed")})
	logger.LogEvent(&fxevent.OnStopExecuting{FunctionName: "stop", CallerName: "main"})
	require.NoError(t, parentLogger.Sync())

	lines := w.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, "Failed to start", lines[0]["msg"])
	require.Equal(t, "start failed", lines[0]["error"])
	require.Equal(t, "Fx", lines[0]["component"])
	require.Equal(t, "stop", lines[1]["function"])
}

func TestFxXLogger_App(t *testing.T) {
	opt, w := withXLoggerMemWriter(t)
	parentLogger := NewXLogger(opt, WithXLoggerLevel(LogLevelDebug))
	app := fx.New(
		fx.Provide(func() XLogger { return parentLogger }),
		fx.WithLogger(func(l XLogger) fxevent.Logger {
			return NewFxXLogger(l)
		}),
		fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error { return nil },
				OnStop:  func(context.Context) error { return nil },
			})
		}),
	)
	require.NoError(t, app.Start(context.Background()))
	require.NoError(t, app.Stop(context.Background()))
	require.NoError(t, parentLogger.Sync())
	require.NotEmpty(t, w.Lines())
}
