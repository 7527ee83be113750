package middlewares

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/helpdesk-api/internal/infrastructure/auth"
)

const unmatchedRoute = "unmatched"

// probePaths are polled by the orchestrator and the scraper; they are neither traced
// nor logged above debug.
var probePaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
}

// routeOf is the registered route pattern, which keeps metric and span cardinality
// bounded.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

func isProbe(c *gin.Context) bool {
	_, ok := probePaths[c.Request.URL.Path]
	return ok
}

// authSubject is set by the auth middleware on protected routes.
func authSubject(c *gin.Context) string {
	return c.GetString(auth.ContextKeySubject)
}
