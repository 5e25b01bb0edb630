package web

import "embed"

// TemplatesFS embeds the HTML templates rendered by the export package.
//
//go:embed templates/*.html
var TemplatesFS embed.FS
