package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	"github.com/cornenkiV/web-ads/internal/models"
	logctx "github.com/cornenkiV/web-ads/internal/pkg/log"
	"github.com/cornenkiV/web-ads/internal/pkg/redact"
)

// GetSession отдаёт текущее значение сессии, включая isInitializing.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

// Login входит и возвращает снимок сессии вместо токенов.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Session.Login(r.Context(), in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.Session.Snapshot())
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	lg := logctx.From(r.Context()).With(
		slog.String("username", in.Username),
		slog.String("phone", redact.Phone(in.PhoneNumber)),
	)

	user, err := h.Auth.Register(r.Context(), in)
	if err != nil {
		lg.Info("register_rejected", slog.Int("status", apierrors.StatusOf(err)))
		apierrors.WriteError(w, r, err)
		return
	}

	lg.Info("register_ok")

	writeJSON(w, http.StatusCreated, user)
}

// Logout всегда успешен: локальная сессия очищается даже при отказе сервера.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
