package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shulebook/shulebook/internal/report"
	syncer "github.com/shulebook/shulebook/internal/sync"
	"github.com/shulebook/shulebook/pkg/logger"
)

// Runner starts a synchronization run and returns its report.
type Runner interface {
	Run(ctx context.Context) (*syncer.Report, error)
}

// SyncHandler exposes the synchronizer over HTTP. At most one run is in
// flight at a time; concurrent triggers get 409.
type SyncHandler struct {
	runner  Runner
	reports report.Store
	timeout time.Duration
	running atomic.Bool
}

func NewSyncHandler(runner Runner, reports report.Store, timeout time.Duration) *SyncHandler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &SyncHandler{runner: runner, reports: reports, timeout: timeout}
}

// RegisterRoutes mounts the sync endpoints under the given group.
func (h *SyncHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/sync", h.Trigger)
	g.GET("/sync/report", h.LastReport)
}

// Trigger starts a run in the background and returns 202 immediately. The
// run uses its own context so it is not cut short when the client hangs up.
func (h *SyncHandler) Trigger(c *gin.Context) {
	if !h.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a synchronization run is already in progress"})
		return
	}

	go func() {
		defer h.running.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		rep, err := h.runner.Run(ctx)
		if err != nil {
			logger.Errorf("sync run failed: %v", err)
		}
		if rep == nil {
			return
		}
		if serr := h.reports.Save(ctx, rep); serr != nil {
			logger.Errorf("save sync report %s: %v", rep.RunID, serr)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// LastReport returns the report of the most recent completed run, or 404 when
// none has completed yet.
func (h *SyncHandler) LastReport(c *gin.Context) {
	rep, err := h.reports.Last(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load report"})
		return
	}
	if rep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no synchronization run has completed yet"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Health reports process liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
