package guard

import (
	"net/http"

	"pos-admin/internal/rbac"
	"pos-admin/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	// LoginPath receives visitors without a session.
	LoginPath = "/login"
	// DeniedPath receives authenticated visitors lacking the route's
	// permissions.
	DeniedPath = "/denied"
)

// Source is the slice of the session manager the guard needs.
type Source interface {
	Snapshot() session.State
}

// Require guards a route group. Per request it resolves to one of four
// outcomes, re-evaluated from a fresh snapshot every time:
//
//   - session still loading: respond 503 with a neutral body, no redirect
//   - no authenticated user: redirect to the login screen
//   - user lacks every required permission (when any are required):
//     redirect to the denied screen
//   - otherwise: pass through
func Require(src Source, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := src.Snapshot()

		switch {
		case st.Loading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "checking"})
		case !st.Authenticated():
			c.Redirect(http.StatusSeeOther, LoginPath)
			c.Abort()
		case len(required) > 0 && !rbac.HasPermission(st.CurrentUser, required...):
			c.Redirect(http.StatusSeeOther, DeniedPath)
			c.Abort()
		default:
			c.Next()
		}
	}
}
