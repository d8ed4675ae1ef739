// Package appfs embeds the files the application ships with: SQL migrations and assets.
package appfs

import "embed"

//go:embed migrations/*.sql all:assets
var FS embed.FS
