package markdown

import (
	"bytes"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// rendererInstance is initialized once and reused. The configuration
// never changes and the goldmark Markdown is safe to share across
// goroutines; per-call state lives in Convert.
var (
	rendererInstance goldmark.Markdown
	rendererOnce     sync.Once
)

func renderer() goldmark.Markdown {
	rendererOnce.Do(func() {
		// Raw HTML in the source is not passed through (goldmark's
		// default), so note bodies from other users stay inert.
		rendererInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
		)
	})
	return rendererInstance
}

// Render converts Markdown source to HTML.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := renderer().Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
