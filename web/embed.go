package web

import "embed"

// TemplatesFS embeds the HTML templates used for report exports.
//
//go:embed templates/*.html
var TemplatesFS embed.FS
