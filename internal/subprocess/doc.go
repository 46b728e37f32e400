// Package subprocess starts and supervises the PowerShell worker process.
//
// Spawn launches the executable in its own process group, drains stdout and
// stderr line by line into caller callbacks and a bounded stderr buffer, and
// exposes the exit through a channel. Kill terminates the whole process group
// so helper processes started by the worker do not outlive it.
package subprocess
