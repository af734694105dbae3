package httpserver

import (
	"bytes"
	"embed"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed assets/index.html assets/docs.md
var assets embed.FS

const docsHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Financial Document Analyzer API</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 40px auto; padding: 0 16px; color: #1f2933; }
pre { background: #f5f7fa; padding: 12px; overflow: auto; }
table { border-collapse: collapse; } td, th { border: 1px solid #d9e2ec; padding: 4px 8px; }
</style>
</head>
<body>
`

func renderDocs() ([]byte, error) {
	src, err := assets.ReadFile("assets/docs.md")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(docsHead)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert(src, &buf); err != nil {
		return nil, err
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

func (r *Router) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(r.index)
}

func (r *Router) handleDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(r.docs)
}
