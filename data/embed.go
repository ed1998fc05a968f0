// Package data embeds the built-in scenario definitions.
package data

import "embed"

// Scenarios holds scenarios/*.json.
//
//go:embed scenarios/*.json
var Scenarios embed.FS
