package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/sendlinks/internal/apperror"
	"github.com/sakif/sendlinks/internal/auth"
	"github.com/sakif/sendlinks/internal/service"
)

const oauthStateCookie = "oauth_state"

// SessionCookie describes the cookie that carries the session token.
type SessionCookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// AuthHandler serves registration, login, logout and GitHub sign-in.
//
//   - HandleRegisterPage / HandleRegister → GET / POST /register
//   - HandleLoginPage / HandleLogin       → GET / POST /login
//   - HandleLogout                        → GET /logout
//   - HandleGitHubLogin / Callback        → GET /auth/github/*
type AuthHandler struct {
	auth   *service.AuthService
	github *auth.GitHubProvider // nil when GitHub sign-in is not configured
	render *Renderer
	cookie SessionCookie
	logger *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	render *Renderer,
	cookie SessionCookie,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		github: github,
		render: render,
		cookie: cookie,
		logger: logger,
	}
}

type registerForm struct {
	Name   string
	Email  string
	GitHub bool
}

type loginForm struct {
	Email  string
	Next   string
	GitHub bool
}

// HandleRegisterPage shows the sign-up form.
//
// HTTP: GET /register
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "register", pageData{
		Data: registerForm{GitHub: h.github != nil},
	})
}

// HandleRegister creates the account and logs it in.
//
// HTTP: POST /register (form: name, email, password)
//
//   - success      → 303 /user/{id}/edit with the session cookie set
//   - email taken  → flash message, 303 /login
//   - invalid form → the form again, 400, with the message
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.errorPage(w, r, http.StatusBadRequest, "Bad request", "The form could not be read.")
		return
	}
	name := r.PostForm.Get("name")
	email := r.PostForm.Get("email")

	result, err := h.auth.Register(r.Context(), name, email, r.PostForm.Get("password"))
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrUserExists):
		setFlash(w, userMessage(err, "User already exists, please log in."))
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case errors.Is(err, apperror.ErrValidation):
		h.render.render(w, r, http.StatusBadRequest, "register", pageData{
			Error: userMessage(err, "Please check the form."),
			Data:  registerForm{Name: name, Email: email, GitHub: h.github != nil},
		})
		return
	default:
		h.render.renderError(w, r, err)
		return
	}

	h.startSession(w, r, result.Token)
	http.Redirect(w, r, "/user/"+strconv.FormatInt(result.User.ID, 10)+"/edit", http.StatusSeeOther)
}

// HandleLoginPage shows the login form. A next query parameter is carried
// through the form so the user lands where they were headed.
//
// HTTP: GET /login?next=/user/3/edit
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.render(w, r, http.StatusOK, "login", pageData{
		Data: loginForm{Next: r.URL.Query().Get("next"), GitHub: h.github != nil},
	})
}

// HandleLogin checks the credentials and starts a session.
//
// HTTP: POST /login (form: email, password, next)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.errorPage(w, r, http.StatusBadRequest, "Bad request", "The form could not be read.")
		return
	}
	email := r.PostForm.Get("email")
	next := r.PostForm.Get("next")

	result, err := h.auth.Login(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidCredentials) {
			h.render.render(w, r, http.StatusUnauthorized, "login", pageData{
				Error: userMessage(err, "Invalid email or password."),
				Data:  loginForm{Email: email, Next: next, GitHub: h.github != nil},
			})
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	h.startSession(w, r, result.Token)
	fallback := "/user/" + strconv.FormatInt(result.User.ID, 10)
	http.Redirect(w, r, safeRedirect(next, fallback), http.StatusSeeOther)
}

// HandleLogout ends the session and clears the cookie. The route sits
// behind auth.RequireAuth.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		h.auth.Logout(r.Context(), c.Value)
	}
	auth.ClearSessionCookie(w, h.cookie.Name, h.cookie.Secure)

	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		h.logger.Info("user logged out", slog.Int64("userID", id))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleGitHubLogin redirects to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL; the callback only proceeds when both match, which
// proves this server started the flow.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes GitHub sign-in.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: missing or mismatched state")
		h.render.errorPage(w, r, http.StatusBadRequest, "Bad request", "Invalid OAuth state. Please try again.")
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		setFlash(w, "GitHub sign-in was cancelled.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.render.errorPage(w, r, http.StatusBadRequest, "Bad request", "Missing OAuth code.")
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.render.errorPage(w, r, http.StatusBadGateway, "Sign-in failed", "GitHub sign-in failed. Please try again.")
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	h.startSession(w, r, result.Token)
	http.Redirect(w, r, "/user/"+strconv.FormatInt(result.User.ID, 10), http.StatusSeeOther)
}

// startSession sets the cookie for a new session. A session the browser
// already had is ended first so it cannot linger in the registry.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, token string) {
	if old, err := r.Cookie(h.cookie.Name); err == nil && old.Value != "" {
		h.auth.Logout(r.Context(), old.Value)
	}
	auth.SetSessionCookie(w, h.cookie.Name, token, h.cookie.TTL, h.cookie.Secure)
}
