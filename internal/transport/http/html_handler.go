package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
)

// IndexPage is the template data of the upload page.
type IndexPage struct {
	Title          string
	Version        string
	ProcessPath    string
	SalesField     string
	InventoryField string
	MaxUploadMB    int64
	OutputFilename string
}

// PageHandler serves the embedded upload page for every unmatched GET.
type PageHandler struct {
	body   []byte
	logger *slog.Logger
}

// NewPageHandler parses index.html from frontendFS and renders it once.
func NewPageHandler(frontendFS fs.FS, page IndexPage, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(frontendFS, "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse upload page: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render upload page: %w", err)
	}

	return &PageHandler{
		body:   buf.Bytes(),
		logger: logger.With(slog.String("handler", "page")),
	}, nil
}

// ServeIndex handles GET /* with the rendered upload page.
func (h *PageHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(h.body)))
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(h.body); err != nil {
		h.logger.DebugContext(r.Context(), "failed to write page",
			slog.String("error", err.Error()))
	}
}
