package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dailyattend/internal/attendance"
	"dailyattend/internal/auth"
	"dailyattend/internal/httpmiddleware"
	"dailyattend/internal/tally"
)

const maxBodyBytes = 64 << 10

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(*gin.Context) bool

// Deps are the collaborators the router serves.
type Deps struct {
	Auth       *auth.Service
	Attendance *attendance.Service
	// Tally is optional; /tally/:date is only mounted when set.
	Tally  tally.Counter
	Checks map[string]HealthCheck
	// WebDir holds the static browser client; skipped when missing.
	WebDir string
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.BodyLimit(maxBodyBytes))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(d.Checks))

	h := &handlers{auth: d.Auth, attendance: d.Attendance, tally: d.Tally}

	r.POST("/register", h.register)
	r.POST("/login", h.login)

	protected := r.Group("/", auth.Bearer(d.Auth))
	protected.POST("/attendance", h.markAttendance)
	protected.GET("/attendance", h.ownAttendance)
	protected.GET("/attendance/:id", h.userAttendance)
	if d.Tally != nil {
		protected.GET("/tally/:date", h.dailyTally)
	}

	mountStatic(r, d.WebDir)
	return r
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok"}
		for name, check := range checks {
			healthy := check(c)
			body[name] = healthy
			if !healthy {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}

func mountStatic(r *gin.Engine, dir string) {
	if dir == "" {
		return
	}
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		return
	}
	r.StaticFile("/", index)
	r.NoRoute(func(c *gin.Context) {
		path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
