package handlers

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

func staticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// HandleIndex serves the labeling page
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(staticFS(), "index.html")
	if err != nil {
		h.writeError(w, "Page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

// HandleStatic serves the remaining embedded assets
func (h *Handler) HandleStatic() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(staticFS())))
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		h.writeError(w, "Unable to write healthcheck", http.StatusInternalServerError)
	}
}
