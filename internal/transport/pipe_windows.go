//go:build windows

package transport

import (
	"context"
	"net"
	"strings"

	"github.com/Microsoft/go-winio"
)

const pipePrefix = `\\.\pipe\`

// PipePaths returns the named pipe path for name.
func PipePaths(name string) []string {
	if strings.HasPrefix(name, pipePrefix) {
		return []string{name}
	}

	return []string{pipePrefix + name}
}

func dialPipe(ctx context.Context, name string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, PipePaths(name)[0])
}
