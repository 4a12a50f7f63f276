package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pos-admin/internal/rbac"
	"pos-admin/internal/session"

	"github.com/gin-gonic/gin"
)

// fakeSession scripts the session manager boundary.
type fakeSession struct {
	loginErr   error
	loggedOut  bool
	state      session.State
	lastLogin  [2]string
}

func (f *fakeSession) Login(_ context.Context, username, password string) error {
	f.lastLogin = [2]string{username, password}
	return f.loginErr
}

func (f *fakeSession) Logout(_ context.Context) { f.loggedOut = true }
func (f *fakeSession) Snapshot() session.State  { return f.state }

func newRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/login", h.LoginForm)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.GET("/session", h.SessionState)
	r.GET("/denied", h.Denied)
	return r
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

func TestLoginJSONSuccess(t *testing.T) {
	fs := &fakeSession{}
	r := newRouter(NewHandlers(fs, mustURL(t, "http://backend")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"admin","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if fs.lastLogin != [2]string{"admin", "pw"} {
		t.Fatalf("credentials not passed through: %v", fs.lastLogin)
	}
}

func TestLoginFormPostRedirectsHome(t *testing.T) {
	fs := &fakeSession{}
	r := newRouter(NewHandlers(fs, mustURL(t, "http://backend")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=admin&password=pw"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestLoginFailureSurfacesMessage(t *testing.T) {
	fs := &fakeSession{loginErr: errors.New("invalid username or password")}
	r := newRouter(NewHandlers(fs, mustURL(t, "http://backend")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"admin","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid username or password") {
		t.Fatalf("expected message in body, got %s", w.Body.String())
	}
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	fs := &fakeSession{}
	r := newRouter(NewHandlers(fs, mustURL(t, "http://backend")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"","password":""}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLogoutRedirectsFormPosts(t *testing.T) {
	fs := &fakeSession{}
	r := newRouter(NewHandlers(fs, mustURL(t, "http://backend")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)

	if !fs.loggedOut {
		t.Fatalf("session manager logout not called")
	}
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Fatalf("expected 303 to /login, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestSessionStateOmitsTokens(t *testing.T) {
	fs := &fakeSession{state: session.State{
		AccessToken:  "secret-access",
		RefreshToken: "secret-refresh",
		CurrentUser: &rbac.User{
			ID:       7,
			Username: "admin",
			Role: &rbac.Role{
				Name:        "owner",
				Permissions: []rbac.Permission{{Name: rbac.PermissionFullAccess}},
			},
		},
	}}
	r := newRouter(NewHandlers(fs, mustURL(t, "http://backend")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))

	body := w.Body.String()
	if strings.Contains(body, "secret-access") || strings.Contains(body, "secret-refresh") {
		t.Fatalf("tokens leaked into session view: %s", body)
	}

	var view stateView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if !view.Authenticated || view.Username != "admin" || view.Role != "owner" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.Permissions) != 1 || view.Permissions[0] != rbac.PermissionFullAccess {
		t.Fatalf("unexpected permissions: %v", view.Permissions)
	}
}

func TestSessionStateAnonymous(t *testing.T) {
	fs := &fakeSession{state: session.State{LastAuthError: "invalid username or password"}}
	r := newRouter(NewHandlers(fs, mustURL(t, "http://backend")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/session", nil))

	var view stateView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Authenticated || view.Permissions == nil {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.LastAuthError != "invalid username or password" {
		t.Fatalf("expected auth error surfaced, got %+v", view)
	}
}

func TestAPIProxyInjectsBearer(t *testing.T) {
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer backend.Close()

	fs := &fakeSession{state: session.State{
		AccessToken: "acc-1",
		CurrentUser: &rbac.User{ID: 1, Username: "admin"},
	}}
	h := NewHandlers(fs, mustURL(t, backend.URL))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any("/api/*path", h.APIProxy)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products/", nil)
	req.Header.Set("Authorization", "Bearer forged-by-browser")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotAuth != "Bearer acc-1" {
		t.Fatalf("expected gateway token, backend saw %q", gotAuth)
	}
}

func TestAPIProxyBadGateway(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	fs := &fakeSession{state: session.State{AccessToken: "acc-1"}}
	h := NewHandlers(fs, mustURL(t, backend.URL))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any("/api/*path", h.APIProxy)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}
