package api

import (
	"net/http"
	"slices"
	"sparql-client/base"
	"strings"

	"github.com/gin-gonic/gin"
)

// writeAccessGranted decides whether the caller may run SPARQL updates. With auth
// disabled everyone may; otherwise a user header is required and, if configured, the
// write access group.
func writeAccessGranted(h http.Header) (granted bool, user string) {
	if !base.Configuration.AuthEnabled {
		granted = true
		return
	}
	user = h.Get(base.AuthUserHeader)
	if len(user) == 0 {
		return
	}
	if len(base.AuthWriteAccessGroup) == 0 {
		granted = true
		return
	}
	groups := strings.Split(h.Get(base.AuthGroupsHeader), ",")
	for i := range groups {
		groups[i] = strings.TrimSpace(groups[i])
	}
	granted = slices.Contains(groups, base.AuthWriteAccessGroup)
	return
}

// requireWriteAccess aborts with 403 unless writeAccessGranted allows the request.
func requireWriteAccess(c *gin.Context) {
	granted, user := writeAccessGranted(c.Request.Header)
	if !granted {
		c.AbortWithStatusJSON(http.StatusForbidden, JSONError{Error: "not allowed"})
		return
	}
	if user != "" {
		c.Set(base.AuthUserHeader, user)
	}
	c.Next()
}
