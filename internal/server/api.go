// Package server provides the SysAdvisor HTTP API on Gin.
//
//	Public:    GET /api/health, POST /api/login
//	JWT:       GET /api/analysis, GET /api/history
//
// /api/analysis returns the same document as `sysadvisor --json`.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/vesaa/sysadvisor/internal/models"
)

// Runner produces one AnalysisResult; *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context) (*models.AnalysisResult, error)
}

// History lists recorded rows; *store.Store satisfies it.
type History interface {
	Recent(ctx context.Context, limit int) ([]models.SnapshotRecord, error)
}

// defaultHistoryLimit applies when ?limit is absent.
const defaultHistoryLimit = 50

// Server holds the API dependencies.
type Server struct {
	runner  Runner
	history History
	auth    *Auth
	logger  *slog.Logger

	// runMu keeps pipeline runs from overlapping.
	runMu sync.Mutex
}

// New builds a Server. history may be nil.
func New(runner Runner, history History, auth *Auth, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{runner: runner, history: history, auth: auth, logger: logger}
}

// Engine returns a configured Gin engine.
func (s *Server) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes wires the API on r.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.GET("/health", s.handleHealth)
	api.POST("/login", s.handleLogin)

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", s.auth.Middleware())
	{
		auth.GET("/analysis", s.handleAnalysis)
		auth.GET("/history", s.handleHistory)
	}
}

// ── Handlers ──────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{"status": "ok", "time": time.Now().UTC()}
	if info, err := host.InfoWithContext(c.Request.Context()); err == nil {
		resp["hostname"] = info.Hostname
		resp["platform"] = info.Platform
	}
	c.JSON(http.StatusOK, resp)
}

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if !s.auth.CheckCredentials(body.Username, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.auth.GenerateJWT(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(tokenTTL.Seconds()),
		"type":       "Bearer",
	})
}

// handleAnalysis runs the pipeline and returns the wire document.
func (s *Server) handleAnalysis(c *gin.Context) {
	s.runMu.Lock()
	res, err := s.runner.Run(c.Request.Context())
	s.runMu.Unlock()
	if err != nil {
		s.logger.Error("analysis request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleHistory returns recent rows, newest first.
func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history store not configured"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	recs, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs})
}
