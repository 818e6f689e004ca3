// Package httpapi is an optional HTTP front door translating JSON task
// submissions into pkg/dispatch calls, grounded on the teacher's gin usage
// (root go.mod dependency, same middleware-chain shape the teacher's web
// and api packages follow) and kept deliberately thin: this is a demo
// surface around the core admission/dispatch engine, not part of it.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/khryptorgraphics/taskgate/pkg/dispatch"
	"github.com/khryptorgraphics/taskgate/pkg/taskcontext"
)

// Server wraps a gin engine around one dispatch.Pool.
type Server struct {
	engine     *gin.Engine
	pool       *dispatch.Pool
	log        zerolog.Logger
	jwtKey     []byte
	requireJWT bool
}

// Config configures a Server.
type Config struct {
	Pool *dispatch.Pool
	Log  zerolog.Logger

	// JWTSigningKey, if non-empty, turns on bearer-token verification for
	// POST /submit: verified claims are copied into the submitted task's
	// ctx side-channel (exposed to conditions as $ctx.*).
	JWTSigningKey string

	// MetricsRegistry, if set, is exposed at GET /metrics via promhttp.
	MetricsRegistry *prometheus.Registry
}

// NewServer builds a Server ready to ListenAndServe.
func NewServer(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		pool:       cfg.Pool,
		log:        cfg.Log,
		jwtKey:     []byte(cfg.JWTSigningKey),
		requireJWT: cfg.JWTSigningKey != "",
	}

	s.routes(cfg.MetricsRegistry)
	return s
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes(registry *prometheus.Registry) {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.POST("/submit", s.handleSubmit)
	s.engine.GET("/stats", s.handleStats)
	if registry != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.pool.IsShutdown() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type submitRequest struct {
	Request map[string]any `json:"request"`
	Ctx     map[string]any `json:"ctx"`
}

type submitResponse struct {
	TaskID string `json:"taskId"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctxValues := body.Ctx
	if ctxValues == nil {
		ctxValues = map[string]any{}
	}

	if s.requireJWT {
		claims, err := s.verifyBearer(c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		for k, v := range claims {
			ctxValues[k] = v
		}
	}

	taskCtx := taskcontext.New(body.Request, ctxValues, taskcontext.WithCorrelationID(c.GetHeader("X-Correlation-ID")))

	if err := s.pool.Submit(taskCtx, func() {
		s.log.Debug().Str("task", taskCtx.TaskID).Msg("httpapi: demo task executed")
	}); err != nil {
		s.writeSubmitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, submitResponse{TaskID: taskCtx.TaskID})
}

func (s *Server) writeSubmitError(c *gin.Context, err error) {
	rejected, ok := err.(*dispatch.RejectedSubmission)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusServiceUnavailable
	if rejected.Reason == dispatch.ReasonBacklogFull {
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"error": rejected.Error(), "reason": string(rejected.Reason)})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.pool.Stats())
}

func (s *Server) verifyBearer(header string) (map[string]any, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return nil, jwt.ErrTokenMalformed
	}
	raw := header[len(prefix):]

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return s.jwtKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(5*time.Second))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return map[string]any(claims), nil
}
