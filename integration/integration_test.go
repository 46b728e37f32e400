//go:build integration

package integration

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/pses-client-go"
)

// skipIfPowerShellNotInstalled skips the test if the error indicates no
// PowerShell executable was found.
func skipIfPowerShellNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*pses.ExecutableNotFoundError](err); ok {
		t.Skip("PowerShell not installed")
	}
}

// editorServicesOptions returns options for a real worker, skipping the test
// when PSES_BUNDLED_MODULES does not point at an editor services install.
func editorServicesOptions(t *testing.T) []pses.Option {
	t.Helper()

	modules := os.Getenv("PSES_BUNDLED_MODULES")
	if modules == "" {
		t.Skip("PSES_BUNDLED_MODULES not set")
	}

	script := os.Getenv("PSES_START_SCRIPT")
	if script == "" {
		script = filepath.Join(modules, "PowerShellEditorServices", "Start-EditorServices.ps1")
	}

	return []pses.Option{
		pses.WithBundledModulesPath(modules),
		pses.WithStartScriptPath(script),
		pses.WithSessionsDir(t.TempDir()),
		pses.WithLogPath(filepath.Join(t.TempDir(), "pses.log")),
		pses.WithLogLevel("Diagnostic"),
	}
}

// writeStartScript writes a stand-in start script that runs body with
// $SessionDetailsPath bound.
func writeStartScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Start-Fake.ps1")
	script := "param([string]$SessionDetailsPath)\n" + body + "\n"

	require.NoError(t, os.WriteFile(path, []byte(script), 0o600))

	return path
}
