package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUplinkError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *UplinkError
		expected string
	}{
		{
			name:     "message only",
			err:      New(CodeValidation, "bad input"),
			expected: "[VALIDATION] bad input",
		},
		{
			name:     "with target",
			err:      NewWithTarget(CodeScanFailed, "scan failed", "10.0.0.1"),
			expected: "[SCAN_FAILED] scan failed (target: 10.0.0.1)",
		},
		{
			name:     "with cause",
			err:      Wrap(CodeFileWrite, "write failed", stderrors.New("disk full")),
			expected: "[FILE_WRITE] write failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestGetCode_WrappedChain(t *testing.T) {
	base := ErrScanInProgress("10.0.0.1")
	wrapped := fmt.Errorf("start: %w", base)

	assert.Equal(t, CodeScanInProgress, GetCode(wrapped))
	assert.True(t, IsCode(wrapped, CodeScanInProgress))
	assert.False(t, IsCode(nil, CodeScanInProgress))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("exec: \"nmap\": executable file not found in $PATH")
	err := ErrNmapNotFound(cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, MsgTargetRequired, UserMessage(ErrTargetRequired()))
	assert.Equal(t, MsgVisualizerOpen, UserMessage(fmt.Errorf("graph: %w", ErrVisualizerOpen())))
	assert.Equal(t, "Invalid configuration value", UserMessage(ErrConfigInvalid("server.port", -1)))
	assert.Equal(t, "plain", UserMessage(stderrors.New("plain")))
}

func TestRetryableAndFatal(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeTimeout, "slow")))
	assert.True(t, IsRetryable(New(CodeDatabaseConnection, "down")))
	assert.False(t, IsRetryable(ErrNoScanData()))

	assert.True(t, IsFatal(New(CodePermission, "denied")))
	assert.True(t, IsFatal(WrapConfigError(CodeConfiguration, "bad file", nil)))
	assert.False(t, IsFatal(ErrScanInProgress("")))
}

func TestWithContext(t *testing.T) {
	err := ErrCommandNotFound("traceroute", nil)

	assert.Equal(t, "traceroute", err.Context["command"])
	assert.Equal(t, MsgCommandNotFound, err.Message)

	e := &UplinkError{Code: CodeUnknown}
	e.WithContext("k", 1).WithOperation("report")
	assert.Equal(t, 1, e.Context["k"])
	assert.Equal(t, "report", e.Operation)
}
