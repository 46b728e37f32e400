package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/pses-client-go/internal/errors"
)

func TestPipeline_TwoCommandOrdering(t *testing.T) {
	p := New().
		AddCommand("Get-Process").
		AddParameter("Name", "pwsh").
		AddCommand("Sort-Object").
		AddArgument("CPU")

	require.NoError(t, p.Err())
	require.Equal(t, 2, p.Len())

	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"commands": [
			{"commandText": "Get-Process", "parameters": [{"name": "Name", "value": "pwsh"}]},
			{"commandText": "Sort-Object", "parameters": [{"value": "CPU"}]}
		]
	}`, string(data))
}

func TestPipeline_ParameterOrderPreserved(t *testing.T) {
	p := New().
		AddCommand("Get-ChildItem").
		AddArgument("/tmp").
		AddParameter("Filter", "*.log").
		AddParameter("Recurse", true, "System.Management.Automation.SwitchParameter")

	params := p.Command(0).Parameters
	require.Len(t, params, 3)
	require.Equal(t, Parameter{Value: "/tmp"}, params[0])
	require.Equal(t, "Filter", params[1].Name)
	require.Equal(t, "System.Management.Automation.SwitchParameter", params[2].TypeName)
}

func TestPipeline_CommandByIndex(t *testing.T) {
	p := New().AddCommand("Get-Process").AddCommand("Select-Object")

	// Edits through Command(i) target exactly that command, not the last one.
	p.Command(0).AddParameter("Id", 42)
	p.Command(1).AddArgument("Name")

	require.Equal(t, []Parameter{{Name: "Id", Value: 42}}, p.Command(0).Parameters)
	require.Equal(t, []Parameter{{Value: "Name"}}, p.Command(1).Parameters)

	require.Nil(t, p.Command(2))
	require.Nil(t, p.Command(-1))
}

func TestPipeline_ParameterBeforeCommand(t *testing.T) {
	p := New().AddParameter("Name", "pwsh").AddArgument("x")

	require.ErrorIs(t, p.Err(), errors.ErrEmptyPipeline)
	require.Contains(t, p.Err().Error(), "add parameter Name")

	// The first misuse is kept even after a command is added.
	p.AddCommand("Get-Process")
	require.ErrorIs(t, p.Err(), errors.ErrEmptyPipeline)
	require.Empty(t, p.Command(0).Parameters)
}

func TestPipeline_EmptyIsAnError(t *testing.T) {
	require.ErrorIs(t, New().Err(), errors.ErrEmptyPipeline)

	var zero Pipeline
	require.ErrorIs(t, zero.Err(), errors.ErrEmptyPipeline)

	data, err := json.Marshal(&zero)
	require.NoError(t, err)
	require.JSONEq(t, `{"commands":[]}`, string(data))
}

func TestPipeline_OmitsEmptyFields(t *testing.T) {
	p := New().AddCommand("Get-Date").AddCommand("Write-Output").AddArgument(nil)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"commands": [
			{"commandText": "Get-Date", "parameters": []},
			{"commandText": "Write-Output", "parameters": [{}]}
		]
	}`, string(data))
}

func TestCommand_ZeroValueParameters(t *testing.T) {
	p := &Pipeline{Commands: []*Command{{CommandText: "Get-Location"}}}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `{"commands":[{"commandText":"Get-Location","parameters":[]}]}`, string(data))
}
