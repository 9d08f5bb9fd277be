// Package status exposes a small JSON API for the daemon: health, the
// outcome of the last refresh, scheduled jobs and stored backups.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mortidx/mortidx/internal/scheduler"
	"github.com/mortidx/mortidx/internal/storage"
)

// RefreshTrigger runs a refresh on demand
type RefreshTrigger func(ctx context.Context) error

// RunSnapshot is the recorded outcome of the most recent refresh
type RunSnapshot struct {
	Archive    string    `json:"archive,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	LogMissing bool      `json:"log_missing,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Server serves the daemon status API
type Server struct {
	addr      string
	server    *http.Server
	pools     *storage.PoolManager
	scheduler *scheduler.Scheduler
	trigger   RefreshTrigger

	mu      sync.RWMutex
	lastRun *RunSnapshot
}

// NewServer creates a status server. trigger may be nil to disable manual
// refresh via the API.
func NewServer(addr string, pools *storage.PoolManager, sched *scheduler.Scheduler, trigger RefreshTrigger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:      addr,
		pools:     pools,
		scheduler: sched,
		trigger:   trigger,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/backups", s.handleBackups)
	router.POST("/refresh", s.handleRefresh)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // a triggered refresh runs inline
	}

	return s
}

// Start starts the status server
func (s *Server) Start() error {
	slog.Info("starting status server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// SetLastRun records the outcome of a refresh for the status endpoint
func (s *Server) SetLastRun(snapshot RunSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = &snapshot
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	s.mu.RLock()
	lastRun := s.lastRun
	s.mu.RUnlock()

	var jobs map[string]scheduler.JobInfo
	if s.scheduler != nil {
		jobs = s.scheduler.ListJobs()
	}

	c.JSON(http.StatusOK, gin.H{
		"last_run": lastRun,
		"jobs":     jobs,
	})
}

func (s *Server) handleBackups(c *gin.Context) {
	result := make(map[string][]storage.StoredFile)
	for _, dest := range s.pools.All() {
		files, err := dest.Storage.List(c.Request.Context(), "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": fmt.Sprintf("pool %q: %s", dest.Name, err),
			})
			return
		}
		result[dest.Name] = files
	}

	c.JSON(http.StatusOK, gin.H{"pools": result})
}

// handleRefresh runs a refresh inline and reports its outcome. Concurrent
// scheduled runs are prevented by the scheduler, not here; the caller is
// expected to use this for recovery, not routine operation.
func (s *Server) handleRefresh(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "manual refresh not configured"})
		return
	}

	slog.Info("refresh triggered via API")
	if err := s.trigger(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
