// Package api exposes the decision engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signal-core/internal/engine"
	"signal-core/internal/events"
	"signal-core/internal/monitor"
	"signal-core/internal/persistence"
	"signal-core/pkg/cache"
	"signal-core/pkg/db"
)

// DecisionStore is the read side of the decision journal.
type DecisionStore interface {
	Recent(ctx context.Context, limit int) ([]db.DecisionRecord, error)
	Get(ctx context.Context, id string) (*db.DecisionRecord, error)
	Stats() persistence.BatchWriterMetrics
}

// Deps are the collaborators the routes use. Only Engine is required.
type Deps struct {
	Engine     *engine.Engine
	Bus        *events.Bus
	Journal    DecisionStore
	Metrics    *monitor.SystemMetrics
	Prometheus *monitor.Prometheus
	Signals    *cache.SignalCache
	Logger     *zap.Logger
}

// Options configure the middleware stack.
type Options struct {
	JWTSecret      string // empty disables auth on /api/v1
	RateLimitRPS   float64
	RateLimitBurst int
	Timeout        time.Duration
	Meta           SystemMeta
}

// SystemMeta describes the running instance on /health.
type SystemMeta struct {
	NodeID  string `json:"node_id"`
	Version string `json:"version"`
}

// Server wires HTTP endpoints around the engine and the event bus.
type Server struct {
	Router *gin.Engine
	deps   Deps
	opts   Options
	logger *zap.Logger
}

func NewServer(deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	logger := deps.Logger.With(zap.String("component", "api"))

	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())                                                      // Panic recovery (first)
	r.Use(RequestIDMiddleware())                                               // Request ID tracking
	r.Use(RequestLogger(logger))                                               // Request logging (after ID is set)
	r.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst, logger)) // Rate limiting
	r.Use(TimeoutMiddleware(opts.Timeout))                                     // Request deadline
	r.Use(CORSMiddleware())                                                    // CORS (last before routes)

	s := &Server{Router: r, deps: deps, opts: opts, logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)
	if s.deps.Prometheus != nil {
		s.Router.GET("/metrics", gin.WrapH(s.deps.Prometheus.Handler()))
	}

	v1 := s.Router.Group("/api/v1")
	if s.opts.JWTSecret != "" {
		v1.Use(AuthMiddleware(s.opts.JWTSecret))
	}
	{
		v1.POST("/run", s.run)
		v1.GET("/strategy", s.getStrategy)
		v1.GET("/decisions", s.listDecisions)
		v1.GET("/decisions/:id", s.getDecision)
		v1.GET("/metrics", s.getMetrics)
		v1.GET("/signals", s.listSignals)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"node_id":  s.opts.Meta.NodeID,
		"version":  s.opts.Meta.Version,
		"strategy": s.deps.Engine.StrategyName(),
		"kind":     s.deps.Engine.Config().Kind,
	})
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.Router }
