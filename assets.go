// Package portal provides embedded templates and static assets for the web server.
package portal

import "embed"

//go:embed all:web/templates
var TemplateFS embed.FS

//go:embed all:web/static
var StaticFS embed.FS
