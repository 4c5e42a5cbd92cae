package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/querylens/querylens/internal/analyze"
	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/metadata"
	"github.com/querylens/querylens/internal/trace"
)

type Server struct {
	router *gin.Engine
	cfg    *config.Config
	db     *database.DB
	store  *database.Store
	logger *slog.Logger
}

// NewServer creates a new server instance. db may be nil when running
// without an archive backend.
func NewServer(cfg *config.Config, db *database.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.Default()

	server := &Server{
		router: router,
		cfg:    cfg,
		db:     db,
		logger: logger,
	}
	if db != nil {
		server.store = database.NewStore(db)
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)
		api.POST("/analyze", s.analyzeTrace)
		api.GET("/runs", s.listRuns)
		api.GET("/runs/:id/issues", s.listRunIssues)
	}
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	if s.db != nil {
		if err := s.db.HealthCheck(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"error":  "database connection failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "querylens",
		"version": "0.1.0",
	})
}

// analyzeRequest carries a captured trace plus optional schema associations
type analyzeRequest struct {
	Queries      []trace.QueryRecord               `json:"queries" binding:"required"`
	Associations map[string][]metadata.Association `json:"associations,omitempty"`
	Identifiers  map[string][]string               `json:"identifiers,omitempty"`
	Archive      bool                              `json:"archive,omitempty"`
}

type analyzeResponse struct {
	RunID      string          `json:"run_id,omitempty"`
	TraceSize  int             `json:"trace_size"`
	IssueCount int             `json:"issue_count"`
	Issues     []analyze.Issue `json:"issues"`
}

// analyzeTrace runs the full analyzer pipeline over a posted trace
func (s *Server) analyzeTrace(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runner, err := analyze.NewRunner(s.cfg.Analysis, s.logger)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var provider metadata.Provider
	if len(req.Associations) > 0 || len(req.Identifiers) > 0 {
		provider = &metadata.StaticProvider{
			Associations: req.Associations,
			Identifiers:  req.Identifiers,
		}
	}

	startedAt := time.Now()
	tr := trace.New(req.Queries)
	issues := runner.Run(tr, provider)
	finishedAt := time.Now()

	resp := analyzeResponse{
		TraceSize:  tr.Len(),
		IssueCount: len(issues),
		Issues:     issues,
	}

	if req.Archive && s.store != nil {
		runID, err := s.store.SaveRun(tr.Len(), issues, startedAt, finishedAt)
		if err != nil {
			s.logger.Warn("failed to archive run", "error", err)
		} else {
			resp.RunID = runID
		}
	}

	c.JSON(http.StatusOK, resp)
}

// listRuns returns recent archived analysis runs
func (s *Server) listRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive backend not configured"})
		return
	}

	runs, err := s.store.ListRuns(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// listRunIssues returns the archived issues for one run
func (s *Server) listRunIssues(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive backend not configured"})
		return
	}

	issues, err := s.store.ListIssues(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}
