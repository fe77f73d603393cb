// Package report renders a digest for people: chat markdown, JSON, or a sanitized HTML page.
package report

import (
	"fmt"
	"io"

	"github.com/ericfisherdev/reviewnudge/internal/domain/model"
)

// Format names an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatMarkdown, FormatJSON, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want markdown, json or html)", s)
	}
}

// Render writes d to w in format f.
func Render(w io.Writer, f Format, d *model.Digest) error {
	switch f {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(d))
		return err
	case FormatJSON:
		return WriteJSON(w, d)
	case FormatHTML:
		_, err := io.WriteString(w, HTML(d))
		return err
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}
