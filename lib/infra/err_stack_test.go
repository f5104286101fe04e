package infra

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var initPC = caller()

func caller() Frame {
	var PCs [3]uintptr
	n := runtime.Callers(2, PCs[:])
	frames := runtime.CallersFrames(PCs[:n])
	frame, _ := frames.Next()
	return Frame(frame.PC)
}

func TestFrameFormat(t *testing.T) {
	testcases := []struct {
		Frame
		format string
		want   string
	}{
		{initPC, "%s", "err_stack_test.go"},
		{initPC, "%n", "init"},
		{initPC, "%d", "14"},
		{initPC, "%v", "err_stack_test.go:14"},
		{Frame(0), "%s", "unknownFile"},
		{Frame(0), "%n", "unknownFunc"},
		{Frame(0), "%d", "0"},
	}

	for _, tc := range testcases {
		frameRes := fmt.Sprintf(tc.format, tc.Frame)
		require.Equal(t, tc.want, frameRes)
	}

	full := fmt.Sprintf("%+v", initPC)
	require.True(t, strings.HasPrefix(full, "github.com/benz9527/xdispatch/lib/infra.init\n\t"))
	require.True(t, strings.HasSuffix(full, "err_stack_test.go:14"))
}

func TestFrameMarshalText(t *testing.T) {
	text, err := initPC.MarshalText()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(text), "github.com/benz9527/xdispatch/lib/infra.init "))
	require.True(t, strings.HasSuffix(string(text), "err_stack_test.go:14"))

	text, err = Frame(0).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "unknownFrame", string(text))
}

func TestNewErrorStack(t *testing.T) {
	err := NewErrorStack("ring is stopped")
	require.Error(t, err)
	require.Equal(t, "ring is stopped", err.Error())

	es, ok := err.(ErrorStack)
	require.True(t, ok)
	require.NotEmpty(t, es.Frames())
	require.Equal(t, "TestNewErrorStack", fmt.Sprintf("%n", es.Frames()[0]))
	require.Nil(t, es.Unwrap())
}

func TestWrapErrorStack(t *testing.T) {
	require.NoError(t, WrapErrorStack(nil))
	require.NoError(t, WrapErrorStackWithMessage(nil, "nothing"))

	sentinel := errors.New("queue closed")
	err := WrapErrorStack(sentinel)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, "queue closed", err.Error())

	// Wrapping twice keeps the original stack.
	again := WrapErrorStack(err)
	require.Same(t, err, again)

	withMsg := WrapErrorStackWithMessage(err, "enqueue")
	require.ErrorIs(t, withMsg, sentinel)
	require.Equal(t, "enqueue: queue closed", withMsg.Error())
	require.Equal(t, err.(ErrorStack).Frames(), withMsg.(ErrorStack).Frames())
}

func TestErrorStackMarshalLogObject(t *testing.T) {
	err := NewErrorStack("handler fault")
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, err.(ErrorStack).MarshalLogObject(enc))
	require.Equal(t, "handler fault", enc.Fields["error"])
	frames, ok := enc.Fields["errorStack"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, frames)
}
