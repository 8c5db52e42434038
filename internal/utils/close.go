package utils

import "io"

// Close closes c and ignores any error.
// Use for best-effort cleanup on paths that already return an error.
func Close(c io.Closer) {
	_ = c.Close()
}
