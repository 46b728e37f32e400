package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPrefix is the file name prefix of session descriptors.
const DefaultPrefix = "PSES-Go"

// Paths computes where session descriptors for one host process live.
//
// Descriptor files are named <Dir>/<Prefix>-<HostPID>-<uniqueID>, so several
// clients in the same host only need distinct unique ids.
type Paths struct {
	Dir     string
	Prefix  string
	HostPID int
}

// DefaultPaths returns the paths for the current process.
func DefaultPaths() Paths {
	return Paths{
		Dir:     DefaultDir(),
		Prefix:  DefaultPrefix,
		HostPID: os.Getpid(),
	}
}

// DefaultDir returns $XDG_RUNTIME_DIR/pses/sessions, falling back to the
// system temporary directory when XDG_RUNTIME_DIR is unset.
func DefaultDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "pses", "sessions")
	}

	return filepath.Join(os.TempDir(), "pses", "sessions")
}

// File returns the descriptor path for uniqueID.
func (p Paths) File(uniqueID string) string {
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return filepath.Join(p.Dir, fmt.Sprintf("%s-%d-%s", prefix, p.HostPID, uniqueID))
}

// EnsureDir creates the sessions directory and parents if needed.
func (p Paths) EnsureDir() error {
	return os.MkdirAll(p.Dir, 0o700)
}
