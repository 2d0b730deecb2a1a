package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
	"github.com/kartikbazzad/bunbase/bunstore/internal/metrics"
	apperrors "github.com/kartikbazzad/bunbase/bunstore/pkg/errors"
)

// Config holds the HTTP surface settings.
type Config struct {
	SecretCode         string
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Server exposes a Collections registry over HTTP.
type Server struct {
	collections *collection.Collections
	metrics     *metrics.Metrics
	cfg         Config
	batchSchema *gojsonschema.Schema
}

// NewServer creates a Server. m may be nil.
func NewServer(collections *collection.Collections, m *metrics.Metrics, cfg Config) (*Server, error) {
	if cfg.SecretCode == "" {
		return nil, fmt.Errorf("secret code must not be empty")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(batchRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile batch schema: %w", err)
	}
	return &Server{
		collections: collections,
		metrics:     m,
		cfg:         cfg,
		batchSchema: schema,
	}, nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		renderError(c, apperrors.NotFound("not found"))
	})

	api := r.Group("/api")
	api.Use(RateLimit(s.cfg.RateLimitPerMinute, s.cfg.RateLimitBurst), BearerAuth(s.cfg.SecretCode))
	{
		api.POST("/collections/:collection", s.createRecord)
		api.GET("/collections/:collection", s.listRecords)
		api.GET("/collections/:collection/:id", s.getRecord)
		api.PUT("/collections/:collection/:id", s.updateRecord)
		api.PATCH("/collections/:collection/:id", s.updateRecord)
		api.DELETE("/collections/:collection/:id", s.deleteRecord)
		api.POST("/batch", s.batch)
	}
	return r
}

func (s *Server) observe(name, operation string, started time.Time, err error) {
	if s.metrics != nil {
		s.metrics.Observe(name, operation, started, err)
	}
}
