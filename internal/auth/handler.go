// Package auth implements sessions, the login/register/logout pages, and
// the credential-changing API.
package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/itu-devops/whoknows/internal/middleware"
	"github.com/itu-devops/whoknows/internal/security"
	"github.com/itu-devops/whoknows/internal/store"
	"github.com/itu-devops/whoknows/internal/web"
)

// Handler holds the auth-related HTTP handlers.
type Handler struct {
	sessions *SessionManager
	renderer *web.Renderer
	logger   *slog.Logger
}

func NewHandler(sessions *SessionManager, renderer *web.Renderer, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, renderer: renderer, logger: logger}
}

// LoginPage renders the login form, or redirects home when already
// logged in.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.CurrentUser(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.renderer.Render(w, http.StatusOK, "login", web.PageData{
		Title:   "Log in",
		Flashes: h.sessions.TakeFlashes(r.Context(), r),
	})
}

// RegisterPage renders the registration form, or redirects home when
// already logged in.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if middleware.CurrentUser(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.renderer.Render(w, http.StatusOK, "register", web.PageData{
		Title:   "Register",
		Flashes: h.sessions.TakeFlashes(r.Context(), r),
	})
}

// Logout clears the session's user id and redirects home with a notice.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.Logout(ctx, r); err != nil {
		h.logger.Warn("logout", "error", err)
	}
	if err := h.sessions.Flash(ctx, w, r, "You were logged out"); err != nil {
		h.logger.Warn("flash", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// APILogin authenticates the submitted form. An unknown username wins over
// a wrong password; either error re-renders the login form with HTTP 200.
func (h *Handler) APILogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := middleware.Store(ctx).UserByName(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.renderLoginError(w, r, "Invalid username")
		return
	case err != nil:
		h.logger.Error("login lookup", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if !security.Verify(user.Password, password) {
		h.renderLoginError(w, r, "Invalid password")
		return
	}

	if err := h.sessions.Login(ctx, w, r, user.ID); err != nil {
		h.logger.Error("create session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := h.sessions.Flash(ctx, w, r, "You were logged in"); err != nil {
		h.logger.Warn("flash", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request, message string) {
	h.renderer.Render(w, http.StatusOK, "login", web.PageData{
		Title: "Log in",
		Error: message,
	})
}

// APIRegister validates the registration form. Checks run in a fixed order
// and the first failure wins; all passing leads to an insert guarded by the
// store's username constraint.
func (h *Handler) APIRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if middleware.CurrentUser(ctx) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")
	password2 := r.PostFormValue("password2")

	st := middleware.Store(ctx)

	var message string
	switch {
	case username == "":
		message = "You have to enter a username"
	case email == "" || !strings.Contains(email, "@"):
		message = "You have to enter a valid email address"
	case password == "":
		message = "You have to enter a password"
	case password != password2:
		message = "The two passwords do not match"
	default:
		if _, taken, err := st.ResolveUserID(ctx, username); err != nil {
			h.logger.Error("register lookup", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		} else if taken {
			message = "The username is already taken"
		}
	}

	if message != "" {
		h.renderer.Render(w, http.StatusOK, "register", web.PageData{
			Title: "Register",
			Error: message,
		})
		return
	}

	hash, err := security.Hash(password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if _, err := st.CreateUser(ctx, username, email, hash); err != nil {
		// The unique constraint closes the check-then-insert race: a
		// concurrent registration with the same name lands here.
		if errors.Is(err, store.ErrUsernameTaken) {
			h.renderer.Render(w, http.StatusOK, "register", web.PageData{
				Title: "Register",
				Error: "The username is already taken",
			})
			return
		}
		h.logger.Error("create user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Flash(ctx, w, r, "You were successfully registered and can login now"); err != nil {
		h.logger.Warn("flash", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

type changePasswordRequest struct {
	OldPassword       string `json:"old_password"`
	NewPassword       string `json:"new_password"`
	RepeatNewPassword string `json:"repeat_new_password"`
}

// ChangePassword re-hashes the session user's credential after verifying
// the old one. JSON in, JSON out.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.CurrentUser(ctx)
	if user == nil {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.NewPassword == "" {
		http.Error(w, `{"error":"new password is required"}`, http.StatusBadRequest)
		return
	}
	if req.NewPassword != req.RepeatNewPassword {
		http.Error(w, `{"error":"the two passwords do not match"}`, http.StatusBadRequest)
		return
	}
	if !security.Verify(user.Password, req.OldPassword) {
		http.Error(w, `{"error":"invalid password"}`, http.StatusUnauthorized)
		return
	}

	hash, err := security.Hash(req.NewPassword)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if err := middleware.Store(ctx).UpdatePassword(ctx, user.ID, hash); err != nil {
		h.logger.Error("update password", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"password changed"}`))
}
