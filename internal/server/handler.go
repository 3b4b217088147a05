package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MrEthical07/adminauth"
	authmw "github.com/MrEthical07/adminauth/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "ok"})
}

// POST /api/admin/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "login successful", Data: res})
}

// POST /api/admin/auth/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "token refreshed", Data: res})
}

// POST /api/admin/auth/logout
//
// Removes the posted refresh token and blacklists the bearer access token.
// A missing body is accepted: the access token is still revoked.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	token, _ := authmw.TokenFromContext(r.Context())

	var req refreshRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	if err := s.auth.Logout(r.Context(), claims.Subject, req.RefreshToken); err != nil {
		writeError(w, err)
		return
	}
	if err := s.auth.BlacklistToken(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "logged out"})
}

// POST /api/admin/auth/logout-all
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())
	token, _ := authmw.TokenFromContext(r.Context())

	if err := s.auth.LogoutAll(r.Context(), claims.Subject); err != nil {
		writeError(w, err)
		return
	}
	if err := s.auth.BlacklistToken(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "all sessions revoked"})
}

// GET /api/admin/auth/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	acct, err := s.auth.Account(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "ok", Data: acct})
}

// POST /api/admin/auth/password
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, _ := authmw.ClaimsFromContext(r.Context())

	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.auth.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "password changed"})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, false)
}

// decodeOptional accepts an empty body, chunked or not, and leaves dst zero.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return true
		}
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid request body"})
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, envelope{Message: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), envelope{Message: adminauth.Message(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, adminauth.ErrInvalidCredentials),
		errors.Is(err, adminauth.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, adminauth.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, adminauth.ErrAccountInactive):
		return http.StatusForbidden
	case errors.Is(err, adminauth.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, adminauth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, adminauth.ErrInvalidAccount),
		errors.Is(err, adminauth.ErrPasswordPolicy),
		errors.Is(err, adminauth.ErrPasswordReuse):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
