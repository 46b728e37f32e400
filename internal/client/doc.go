// Package client implements the session client that launches a PowerShell
// Editor Services worker and talks to it.
//
// A Client moves through a fixed lifecycle:
//
//	Idle → Launching → AwaitingHandshake → Connected → Disposed
//
// Launching spawns the worker with computed startup arguments. While
// AwaitingHandshake the client polls for the session descriptor the worker
// writes, racing that wait against the worker exiting. Once the descriptor
// reports a started session the client dials the advertised endpoint and
// starts the protocol controller. Failures before Connected leave the client
// in Failed; Dispose releases everything from any state.
//
// Clients are single-use: after Dispose, create a new one with New.
package client
