// Package message defines the typed worker messages exchanged with
// PowerShell Editor Services and decodes their payloads.
package message
