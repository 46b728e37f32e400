package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Worker methods with typed payloads.
const (
	// MethodInvokePSCommand runs a command pipeline and returns its output.
	MethodInvokePSCommand = "powerShell/invokePSCommand"
	// MethodGetVersion returns the worker's PowerShell version.
	MethodGetVersion = "powerShell/getVersion"
	// MethodRunspaceChanged is sent by the worker when the active runspace changes.
	MethodRunspaceChanged = "powerShell/runspaceChanged"
)

// VersionDetails describes the PowerShell version hosting the worker.
type VersionDetails struct {
	Version        string `json:"version"`
	DisplayVersion string `json:"displayVersion"`
	Edition        string `json:"edition"`
	Architecture   string `json:"architecture"`
}

// RunspaceType identifies where a runspace lives.
type RunspaceType int

const (
	// RunspaceLocal is a runspace in the worker process.
	RunspaceLocal RunspaceType = iota
	// RunspaceProcess is a runspace attached to another local process.
	RunspaceProcess
	// RunspaceRemote is a runspace on a remote machine.
	RunspaceRemote
)

var runspaceTypeNames = [...]string{"Local", "Process", "Remote"}

func (t RunspaceType) String() string {
	if t >= 0 && int(t) < len(runspaceTypeNames) {
		return runspaceTypeNames[t]
	}

	return fmt.Sprintf("RunspaceType(%d)", int(t))
}

// UnmarshalJSON implements json.Unmarshaler.
// The worker sends the numeric value; names are accepted as well.
func (t *RunspaceType) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*t = RunspaceType(n)

		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("runspace type: expected number or string, got %s", data)
	}

	for i, known := range runspaceTypeNames {
		if strings.EqualFold(name, known) {
			*t = RunspaceType(i)

			return nil
		}
	}

	return fmt.Errorf("runspace type: unknown value %q", name)
}

// RunspaceDetails is the payload of MethodRunspaceChanged.
type RunspaceDetails struct {
	PowerShellVersion VersionDetails `json:"powerShellVersion"`
	RunspaceType      RunspaceType   `json:"runspaceType"`
	ConnectionString  string         `json:"connectionString"`
}

// IsRemote reports whether the runspace is on another machine.
func (d *RunspaceDetails) IsRemote() bool {
	return d.RunspaceType == RunspaceRemote
}

// InvokeResult is the result of MethodInvokePSCommand.
//
// Output holds the pipeline's output objects as decoded JSON values. Errors
// holds the messages of any errors written to the error stream.
type InvokeResult struct {
	Output []any    `json:"output"`
	Errors []string `json:"errors"`
}

// HadErrors reports whether the pipeline wrote to the error stream.
func (r *InvokeResult) HadErrors() bool {
	return len(r.Errors) > 0
}
