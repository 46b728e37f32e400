//go:build !windows

package transport

import (
	"context"
	"net"
	"os"
	"path/filepath"
)

// PipePaths returns the Unix domain socket paths that may back the named
// pipe name, in the order they are tried.
//
// Absolute names are used as-is. Otherwise the .NET runtime's layouts are
// used: <tmp>/CoreFxPipe_<name>, then the older <tmp>/.dotnet/corefx/pipe/<name>.
func PipePaths(name string) []string {
	if filepath.IsAbs(name) {
		return []string{name}
	}

	tmp := os.TempDir()

	return []string{
		filepath.Join(tmp, "CoreFxPipe_"+name),
		filepath.Join(tmp, ".dotnet", "corefx", "pipe", name),
	}
}

func dialPipe(ctx context.Context, name string) (net.Conn, error) {
	paths := PipePaths(name)

	var d net.Dialer

	for _, path := range paths[:len(paths)-1] {
		if _, err := os.Stat(path); err == nil {
			return d.DialContext(ctx, "unix", path)
		}
	}

	return d.DialContext(ctx, "unix", paths[len(paths)-1])
}
