// Package web serves the batch history dashboard and JSON API over HTTP.
// Binds to 127.0.0.1 only.
package web

import "embed"

//go:embed static/index.html
var staticFS embed.FS
