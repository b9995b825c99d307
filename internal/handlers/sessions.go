package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/lehigh-university-libraries/woundlabel/internal/auth"
	"github.com/lehigh-university-libraries/woundlabel/internal/labeling"
	"github.com/lehigh-university-libraries/woundlabel/internal/models"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	SessionID string            `json:"session_id,omitempty"`
	Username  string            `json:"username"`
	Progress  labeling.Progress `json:"progress"`
	Image     *models.Image     `json:"image,omitempty"`
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	}

	if err := h.checker.Check(req.Username, req.Password); err != nil {
		if errors.Is(err, auth.ErrThrottled) {
			h.writeError(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		h.writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	session := h.sessionStore.Create(req.Username)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("Rater logged in", "session_id", session.ID, "username", session.Username, "active_sessions", h.sessionStore.Count())

	resp := h.describe(session)
	resp.SessionID = session.ID
	h.writeJSON(w, resp)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request, session *models.RaterSession) {
	h.sessionStore.Delete(session.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	slog.Info("Rater logged out", "session_id", session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request, session *models.RaterSession) {
	h.writeJSON(w, h.describe(session))
}

func (h *Handler) describe(session *models.RaterSession) sessionResponse {
	resp := sessionResponse{
		Username: session.Username,
		Progress: h.service.Progress(session),
	}
	if img, err := h.service.Current(session); err == nil {
		resp.Image = &img
	}
	return resp
}
