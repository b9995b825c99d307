package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/woundlabel/internal/blob"
	"github.com/lehigh-university-libraries/woundlabel/internal/labeling"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// HandleCurrentImage streams the image under the session cursor
func (h *Handler) HandleCurrentImage(w http.ResponseWriter, r *http.Request, session *models.RaterSession) {
	img, err := h.service.Current(session)
	if err != nil {
		if errors.Is(err, labeling.ErrCatalogExhausted) {
			h.writeError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	content, err := h.fetcher.Fetch(r.Context(), img)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			h.writeError(w, "Image not found: "+img.ID, http.StatusNotFound)
			return
		}
		h.writeError(w, "Failed to fetch image: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Image-ID", content.ImageID)
	if content.Width > 0 {
		w.Header().Set("X-Image-Width", strconv.Itoa(content.Width))
		w.Header().Set("X-Image-Height", strconv.Itoa(content.Height))
	}
	_, _ = w.Write(content.Data)
}
