package server

import (
	"path/filepath"

	"golang.org/x/text/cases"
)

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".ico":  "image/x-icon",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".txt":  "text/plain",
}

// ContentType returns the MIME type for name based on its extension,
// ignoring case. Unknown extensions get application/octet-stream.
func ContentType(name string) string {
	ext := cases.Fold().String(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return defaultContentType
}
