package errors

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnError(t *testing.T) {
	root := errors.New("exec format error")
	err := &SpawnError{Path: "/usr/bin/pwsh", Err: root}

	require.Equal(t, "failed to start worker /usr/bin/pwsh: exec format error", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsSessionError())
}

func TestExecutableNotFoundError(t *testing.T) {
	err := &ExecutableNotFoundError{
		SearchedPaths: []string{"$PATH", "/usr/bin/pwsh"},
	}

	require.Equal(t, "powershell executable not found in: [$PATH /usr/bin/pwsh]", err.Error())
	require.True(t, err.IsSessionError())
}

func TestTimeoutError_WithoutLastError(t *testing.T) {
	err := &TimeoutError{Path: "/tmp/s", Attempts: 3, Interval: 10 * time.Millisecond}

	require.Equal(t, "timed out waiting for session file /tmp/s after 3 attempts", err.Error())
	require.NoError(t, err.Unwrap())
}

func TestTimeoutError_SurfacesLastParseError(t *testing.T) {
	parseErr := &DescriptorParseError{Path: "/tmp/s", Err: errors.New("unexpected end of JSON input")}
	err := &TimeoutError{Path: "/tmp/s", Attempts: 60, LastErr: parseErr}

	got, ok := errors.AsType[*DescriptorParseError](err)
	require.True(t, ok)
	require.Same(t, parseErr, got)
	require.Contains(t, err.Error(), "unexpected end of JSON input")
}

func TestParseHandshakeReason(t *testing.T) {
	tests := []struct {
		raw  string
		want HandshakeReason
	}{
		{"unsupported", ReasonUnsupportedVersion},
		{"languageMode", ReasonRestrictedLanguageMode},
		{"", ReasonUnspecified},
		{"somethingElse", ReasonUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require.Equal(t, tt.want, ParseHandshakeReason(tt.raw))
		})
	}
}

func TestHandshakeError_MessagesCarryWorkerDetail(t *testing.T) {
	unsupported := &HandshakeError{Reason: ReasonUnsupportedVersion, RawReason: "unsupported", RuntimeVersion: "2.0"}
	require.Contains(t, unsupported.Error(), "2.0")
	require.NotContains(t, unsupported.Error(), ": ", "no detail means no trailing separator")

	unsupported.Detail = "Windows PowerShell 2.0 is not supported"
	require.True(t, strings.HasSuffix(unsupported.Error(), "2.0: Windows PowerShell 2.0 is not supported"))

	languageMode := &HandshakeError{
		Reason:    ReasonRestrictedLanguageMode,
		RawReason: "languageMode",
		Detail:    "ConstrainedLanguage",
	}
	require.Contains(t, languageMode.Error(), "ConstrainedLanguage")

	unknown := &HandshakeError{Reason: ReasonUnspecified, RawReason: "boom", Detail: "stack overflow"}
	require.Contains(t, unknown.Error(), `"boom"`)
	require.Contains(t, unknown.Error(), "stack overflow")
	require.Equal(t, "unspecified", unknown.Reason.String())
}

func TestConnectionError(t *testing.T) {
	root := errors.New("connection refused")
	err := &ConnectionError{Channel: "port", Address: "127.0.0.1:4711", Err: root}

	require.Equal(t, "failed to connect to worker port 127.0.0.1:4711: connection refused", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsSessionError())
}

func TestConnectionError_WrapsHandshakeError(t *testing.T) {
	hs := &HandshakeError{Reason: ReasonUnsupportedVersion, RawReason: "unsupported"}
	err := &ConnectionError{Err: hs}

	got, ok := errors.AsType[*HandshakeError](err)
	require.True(t, ok)
	require.Equal(t, ReasonUnsupportedVersion, got.Reason)
}

func TestProcessError_WithUnderlyingError(t *testing.T) {
	root := errors.New("signal: killed")
	err := &ProcessError{ExitCode: -1, Stderr: "ignored when Err is set", Err: root}

	require.Equal(t, "worker process exited (exit -1): signal: killed", err.Error())
	require.ErrorIs(t, err, root)
}

func TestProcessError_WithStderrOnly(t *testing.T) {
	err := &ProcessError{ExitCode: 1, Stderr: "The term 'Start-EditorServices' is not recognized\n"}

	require.Equal(t, "worker process exited (exit 1): The term 'Start-EditorServices' is not recognized", err.Error())
	require.NoError(t, err.Unwrap())
}

func TestDescriptorIOError_UnwrapsNotExist(t *testing.T) {
	err := &DescriptorIOError{Op: "write", Path: "/missing/dir/s", Err: fs.ErrNotExist}

	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Equal(t, "failed to write session file /missing/dir/s: file does not exist", err.Error())
}

func TestFrameAndResponseErrors(t *testing.T) {
	root := errors.New("missing Content-Length header")
	frame := &FrameError{Err: root}
	require.ErrorIs(t, frame, root)
	require.True(t, frame.IsSessionError())

	resp := &ResponseError{Method: "powerShell/getVersion", Message: "boom"}
	require.Equal(t, "request powerShell/getVersion failed: boom", resp.Error())
}

func TestResponseError_WithCode(t *testing.T) {
	resp := &ResponseError{Method: "x/y", Code: -32601, Message: "method not found"}

	require.Equal(t, "request x/y failed (code -32601): method not found", resp.Error())
}

func TestMessageParseError(t *testing.T) {
	root := errors.New("unexpected end of JSON input")
	err := &MessageParseError{Method: "powerShell/getVersion", Data: []byte(`{"ver`), Err: root}

	require.ErrorIs(t, err, root)
	require.Equal(t, "parse powerShell/getVersion message: unexpected end of JSON input", err.Error())
}
