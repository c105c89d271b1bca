package api

import (
	"net/http"
	"sparql-client/base"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type JSONError struct {
	Error string `json:"error"`
}

var Router = gin.New()
var BasePath = "/api/v1"
var livelinessEndpoint = "/healthz"

// probe holds the outcome of the last scheduled endpoint check.
var probe struct {
	sync.RWMutex
	err     error
	checked time.Time
}

// init configures CORS and base routes for the API router.
func init() {
	corsConfig := cors.New(cors.Config{
		AllowOrigins:     base.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept", requestIdHeader},
		ExposeHeaders:    []string{"Content-Length", requestIdHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
	// exclude liveliness checks from access logs
	Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{BasePath + livelinessEndpoint},
	}))
	Router.Use(gin.Recovery())
	Router.Use(corsConfig)
	Router.SetTrustedProxies(nil)
	Router.GET(BasePath+livelinessEndpoint, handleHealthz)
	Router.GET(BasePath+"/config", handleConfig)
}

// ReportProbe records the result of an endpoint check. A non-nil error turns the
// liveness endpoint to 503 until the next successful check.
func ReportProbe(err error) {
	probe.Lock()
	defer probe.Unlock()
	probe.err = err
	probe.checked = time.Now()
}

func handleHealthz(c *gin.Context) {
	probe.RLock()
	err, checked := probe.err, probe.checked
	probe.RUnlock()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   err.Error(),
			"checked": checked.Format(time.RFC3339),
		})
		return
	}
	c.String(http.StatusOK, "ok")
}

// handleConfig returns the public endpoint configuration and the caller's auth context.
func handleConfig(c *gin.Context) {
	writeAccess, user := writeAccessGranted(c.Request.Header)
	config := base.AuthenticatedConfig{
		Config:      base.Configuration,
		User:        user,
		Email:       c.Request.Header.Get(base.AuthEmailHeader),
		WriteAccess: writeAccess,
	}
	c.JSON(http.StatusOK, config)
}
