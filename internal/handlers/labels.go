package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/woundlabel/internal/labeling"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

// HandleSubmitLabel records the rater's answer for the current image
func (h *Handler) HandleSubmitLabel(w http.ResponseWriter, r *http.Request, session *models.RaterSession) {
	var sub labeling.Submission
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
			return
		}
		sub = submissionFromForm(r)
	}

	out, err := h.service.Submit(r.Context(), session, sub)
	if err != nil {
		switch {
		case errors.Is(err, labeling.ErrInvalidSubmission):
			h.writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, labeling.ErrStaleImage), errors.Is(err, labeling.ErrCatalogExhausted):
			h.writeError(w, err.Error(), http.StatusConflict)
		default:
			h.writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, out)
}

func submissionFromForm(r *http.Request) labeling.Submission {
	altered := strings.ToLower(strings.TrimSpace(r.PostFormValue("altered")))
	return labeling.Submission{
		ImageID:  r.PostFormValue("image_name"),
		Role:     r.PostFormValue("expert"),
		Altered:  altered == "true" || altered == "yes" || altered == "1" || altered == "on",
		Findings: r.PostForm["findings"],
	}
}
