// Package command builds PowerShell command pipelines for the
// powerShell/invokePSCommand request.
//
// A Pipeline is an ordered list of commands, each with an ordered list of
// named or positional parameters:
//
//	p := command.New().
//		AddCommand("Get-Process").
//		AddParameter("Name", "pwsh").
//		AddCommand("Sort-Object").
//		AddArgument("CPU")
//
// AddParameter and AddArgument append to the most recently added command.
// Command(i) addresses a command by index for edits after construction.
package command
