// Package web embeds the settings page's static assets.
package web

import "embed"

//go:embed static
var StaticFiles embed.FS
