package httpapi

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"

	"pos-admin/internal/guard"
	"pos-admin/internal/session"
	"pos-admin/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SessionService is the slice of the session manager the handlers need.
type SessionService interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context)
	Snapshot() session.State
}

// Handlers groups the gateway's HTTP handlers for dependency injection.
// Keep these thin: parse input, call the session manager, return JSON or a
// redirect.
type Handlers struct {
	Session SessionService
	proxy   *httputil.ReverseProxy
}

// NewHandlers wires handlers against the session service and the backend
// origin for the API proxy.
func NewHandlers(sm SessionService, backend *url.URL) Handlers {
	h := Handlers{Session: sm}

	proxy := httputil.NewSingleHostReverseProxy(backend)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = backend.Host
		// The gateway, not the browser, holds the bearer credential.
		req.Header.Del("Authorization")
		if st := sm.Snapshot(); st.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+st.AccessToken)
		}
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"backend unreachable"}`))
	}
	h.proxy = proxy

	return h
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login authenticates the operator. Browser form posts are answered with a
// redirect to the home screen; JSON clients get a status body. Failure
// wording comes straight from the session manager and is safe to display.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if err := h.Session.Login(c.Request.Context(), req.Username, req.Password); err != nil {
		logger.FromGin(c).Info("login rejected", "username", req.Username)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	if isFormPost(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Logout ends the session and sends the caller back to the login screen.
// Safe to call without an active session.
func (h Handlers) Logout(c *gin.Context) {
	h.Session.Logout(c.Request.Context())
	if isFormPost(c) {
		c.Redirect(http.StatusSeeOther, guard.LoginPath)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// stateView is the sanitized session state exposed to the UI. Tokens stay
// inside the gateway.
type stateView struct {
	Authenticated bool     `json:"authenticated"`
	Loading       bool     `json:"loading"`
	Username      string   `json:"username,omitempty"`
	Role          string   `json:"role,omitempty"`
	Permissions   []string `json:"permissions"`
	LastAuthError string   `json:"last_auth_error,omitempty"`
}

// SessionState reports the current session for the UI to render navigation
// and error text from.
func (h Handlers) SessionState(c *gin.Context) {
	st := h.Session.Snapshot()

	view := stateView{
		Authenticated: st.Authenticated(),
		Loading:       st.Loading,
		LastAuthError: st.LastAuthError,
		Permissions:   []string{},
	}
	if u := st.CurrentUser; u != nil {
		view.Username = u.Username
		if u.Role != nil {
			view.Role = u.Role.Name
		}
		if names := u.PermissionNames(); names != nil {
			view.Permissions = names
		}
	}
	c.JSON(http.StatusOK, view)
}

// LoginForm serves a minimal credential form for browser use.
func (h Handlers) LoginForm(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
}

// Denied is the access-denied screen unauthorized visitors land on.
func (h Handlers) Denied(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "you do not have access to this screen"})
}

// Home is the guarded landing page.
func (h Handlers) Home(c *gin.Context) {
	st := h.Session.Snapshot()
	username := ""
	if st.CurrentUser != nil {
		username = st.CurrentUser.Username
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "username": username})
}

// APIProxy forwards guarded requests to the POS backend with the current
// bearer token attached.
func (h Handlers) APIProxy(c *gin.Context) {
	h.proxy.ServeHTTP(c.Writer, c.Request)
}

func isFormPost(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

const loginPage = `<!doctype html>
<html>
<head><title>POS Admin — Sign in</title></head>
<body>
<form method="post" action="/login">
  <label>Username <input name="username" autocomplete="username"></label>
  <label>Password <input name="password" type="password" autocomplete="current-password"></label>
  <button type="submit">Sign in</button>
</form>
</body>
</html>`
