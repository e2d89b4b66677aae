// Package render converts raw markdown post bodies to HTML at read
// time. The output is never persisted; the store only ever holds the
// markdown source.
package render

import (
	"bytes"
	"html/template"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
			highlighting.WithFormatOptions(
				chromahtml.WithLineNumbers(false),
			),
		),
	),
)

// HTML renders markdown source. Fenced code blocks with a recognized
// language get chroma highlighting; unknown or missing language hints
// come out as a plain code block. Raw HTML in the source is escaped
// (goldmark default), so the result is safe to emit as-is.
func HTML(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
