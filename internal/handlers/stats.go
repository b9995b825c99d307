package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lehigh-university-libraries/woundlabel/internal/agreement"
	"github.com/lehigh-university-libraries/woundlabel/internal/export"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

type table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type statsResponse struct {
	Records  int               `json:"records"`
	Ignored  int               `json:"ignored_repeats"`
	Pivot    table             `json:"classification_table"`
	Findings table             `json:"additional_labels_table"`
	Summary  agreement.Summary `json:"summary"`
	Lines    []string          `json:"lines"`
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request, _ *models.RaterSession) {
	d, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, statsResponse{
		Records:  d.Records,
		Ignored:  d.Pivot.Ignored,
		Pivot:    table{Header: d.Pivot.Header(), Rows: d.Pivot.Rows()},
		Findings: table{Header: d.Findings.Header(), Rows: d.Findings.Rows()},
		Summary:  d.Summary,
		Lines:    d.Summary.Lines(),
	})
}

// HandleTable downloads one derived table as CSV
func (h *Handler) HandleTable(w http.ResponseWriter, r *http.Request, _ *models.RaterSession) {
	name := chi.URLParam(r, "name")
	if !strings.HasSuffix(name, ".csv") {
		name += ".csv"
	}
	if name != export.PivotName && name != export.FindingsName {
		h.writeError(w, "Unknown table: "+name, http.StatusNotFound)
		return
	}

	d, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	header, rows := d.Pivot.Header(), d.Pivot.Rows()
	if name == export.FindingsName {
		header, rows = d.Findings.Header(), d.Findings.Rows()
	}
	data, err := export.EncodeCSV(header, rows)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}
