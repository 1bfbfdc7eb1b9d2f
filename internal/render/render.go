// Package render converts published markdown to HTML for display.
package render

import (
	"bytes"

	"github.com/yuin/goldmark"
)

// HTML renders markdown to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
