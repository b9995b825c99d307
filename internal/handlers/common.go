package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/woundlabel/internal/auth"
	"github.com/lehigh-university-libraries/woundlabel/internal/images"
	"github.com/lehigh-university-libraries/woundlabel/internal/labeling"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
	"github.com/lehigh-university-libraries/woundlabel/internal/storage"
)

const sessionCookie = "woundlabel_session"

type Handler struct {
	sessionStore *storage.SessionStore
	service      *labeling.Service
	fetcher      *images.Fetcher
	checker      auth.Checker
}

func New(sessionStore *storage.SessionStore, service *labeling.Service, fetcher *images.Fetcher, checker auth.Checker) *Handler {
	return &Handler{
		sessionStore: sessionStore,
		service:      service,
		fetcher:      fetcher,
		checker:      checker,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, data, http.StatusOK)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Warn(message, "status", code)
	}
	h.writeJSONStatus(w, map[string]string{"error": message}, code)
}

// sessionHandler receives the rater session resolved by requireSession
type sessionHandler func(w http.ResponseWriter, r *http.Request, session *models.RaterSession)

// Session helpers
func (h *Handler) sessionFromRequest(r *http.Request) (*models.RaterSession, bool) {
	id := r.Header.Get("X-Session-ID")
	if id == "" {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			return nil, false
		}
		id = c.Value
	}
	return h.sessionStore.Get(id)
}

// requireSession rejects requests without a live session
func (h *Handler) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.sessionFromRequest(r)
		if !ok {
			h.writeError(w, "Login required", http.StatusUnauthorized)
			return
		}
		next(w, r, session)
	}
}
