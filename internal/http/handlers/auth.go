package handlers

import (
	"net/http"

	apierrors "github.com/piyushmaurya04/expense-tracker/internal/http/errors"
	"github.com/piyushmaurya04/expense-tracker/internal/service"
)

// Register — POST /api/auth/register. Токены не выдаются.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeAndValidate(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if _, err := h.auth.Register(r.Context(), in.Username, in.Email, in.Password); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "User registered successfully!"})
}

// Login — POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeAndValidate(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sess, err := h.auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionFromModel(sess))
}

// Refresh — POST /api/auth/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeAndValidate(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sess, err := h.auth.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionFromModel(sess))
}

// Logout — POST /api/auth/logout. Access-токен продолжает работать до истечения.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.auth.Logout(r.Context(), p.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User logged out successfully!"})
}

// Me — GET /api/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	u, err := h.auth.Profile(r.Context(), p.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(u))
}

// UpdateProfile — PUT /api/auth/update. Отсутствующие поля не меняются.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var in updateProfileRequest
	if err := decodeAndValidate(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	upd := service.ProfileUpdate{Username: in.Username, Email: in.Email}
	if _, err := h.auth.UpdateProfile(r.Context(), p.ID, upd); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User profile updated successfully!"})
}
