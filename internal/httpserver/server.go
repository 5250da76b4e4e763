// Package httpserver exposes a small local API for inspecting and driving a
// running display, plus a webhook that feeds deals through the gateway.
package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/dealboard/internal/display"
	"github.com/tinytelemetry/dealboard/internal/gateway"
	"github.com/tinytelemetry/dealboard/internal/model"
)

const maxDealBody = 64 << 10

// Display is the part of the display the API drives.
type Display interface {
	Snapshot() display.View
	RefreshNow() error
	Next()
}

// Deals ingests webhook frames and reports push status.
type Deals interface {
	Ingest(raw []byte) (model.DealNotification, error)
	Status() gateway.Status
}

// Server provides the local status/control API.
type Server struct {
	addr      string
	token     string
	display   Display
	deals     Deals
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new API server. A non-empty token is required as a
// bearer token on POST /api/deals.
func NewServer(addr, token string, d Display, deals Deals) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		token:     token,
		display:   d,
		deals:     deals,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/display", s.handleDisplay)
	api.POST("/deals", s.requireToken, s.handleDeal)
	api.POST("/refresh", s.handleRefresh)
	api.POST("/slides/next", s.handleNext)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()
	slog.Info("httpserver: listening", "addr", listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("httpserver: serve failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	v := s.display.Snapshot()
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
		"phase":  v.Phase,
		"state":  v.State,
	}
	if s.deals != nil {
		body["push"] = s.deals.Status().State
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleDisplay(c *gin.Context) {
	resp := gin.H{"display": s.display.Snapshot()}
	if s.deals != nil {
		resp["push"] = s.deals.Status()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) requireToken(c *gin.Context) {
	if s.token == "" {
		return
	}
	got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
	}
}

func (s *Server) handleDeal(c *gin.Context) {
	if s.deals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "deal intake disabled"})
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDealBody+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}
	if len(raw) > maxDealBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
		return
	}

	n, err := s.deals.Ingest(raw)
	if err != nil {
		slog.Debug("httpserver: deal rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": n.ID})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if err := s.display.RefreshNow(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}

func (s *Server) handleNext(c *gin.Context) {
	s.display.Next()
	v := s.display.Snapshot()
	c.JSON(http.StatusOK, gin.H{"index": v.Rotation.Index, "count": v.Rotation.Count})
}
