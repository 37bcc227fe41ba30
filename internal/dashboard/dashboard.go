// Package dashboard serves a local JSON status API over gin.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skiffbot/skiff/internal/keys"
	"github.com/skiffbot/skiff/internal/models"
	"github.com/skiffbot/skiff/internal/probe"
	"github.com/skiffbot/skiff/internal/sysinfo"
	"gorm.io/gorm"
)

const (
	shutdownTimeout  = 5 * time.Second
	recentDispatches = 20
)

// Server exposes the bot's state as a read-only JSON API.
type Server struct {
	prober *probe.Prober
	keys   *keys.Store
	db     *gorm.DB
	port   int
	engine *gin.Engine
}

// ServerOpts holds parameters for creating a Server.
type ServerOpts struct {
	Prober *probe.Prober
	Keys   *keys.Store
	DB     *gorm.DB
	Port   int
}

// NewServer creates a Server and registers its routes.
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Prober == nil {
		return nil, fmt.Errorf("dashboard: prober is required")
	}
	if opts.Keys == nil {
		return nil, fmt.Errorf("dashboard: key store is required")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("dashboard: port is required")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		prober: opts.Prober,
		keys:   opts.Keys,
		db:     opts.DB,
		port:   opts.Port,
		engine: engine,
	}
	engine.GET("/healthz", s.healthz)
	engine.GET("/api/status", s.status)
	engine.GET("/api/keys", s.listKeys)
	engine.GET("/api/dispatches", s.dispatches)
	return s, nil
}

// Run serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard: shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	services := gin.H{}
	for _, st := range s.prober.Check() {
		services[st.Name] = st.Running
	}

	resp := gin.H{"services": services}
	if stats, err := sysinfo.Collect(); err == nil {
		resp["host"] = gin.H{
			"cpu_percent":  stats.CPUPercent,
			"mem_percent":  stats.MemPercent,
			"disk_percent": stats.DiskPercent,
			"disk_used":    stats.DiskUsed,
			"disk_total":   stats.DiskTotal,
			"disk_warning": stats.DiskWarning,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listKeys(c *gin.Context) {
	all, err := s.keys.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(all))
	for _, k := range all {
		out = append(out, gin.H{"name": k.Name, "suffix": maskSuffix(k.Suffix)})
	}
	c.JSON(http.StatusOK, gin.H{"keys": out})
}

func (s *Server) dispatches(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"dispatches": []gin.H{}})
		return
	}
	var recs []models.DispatchRecord
	if err := s.db.Order("created_at desc").Limit(recentDispatches).Find(&recs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(recs))
	for _, r := range recs {
		out = append(out, gin.H{
			"repo":       r.Repo,
			"mode":       r.Mode,
			"ok":         r.OK,
			"message":    r.Message,
			"created_at": r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"dispatches": out})
}

// maskSuffix hides most of a stream key in API output.
func maskSuffix(suffix string) string {
	if len(suffix) <= 4 {
		return "****"
	}
	return suffix[:2] + "***" + suffix[len(suffix)-2:]
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
