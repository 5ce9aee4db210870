// Package handler exposes the operational HTTP surface of the settlement service.
package handler

import (
	"auctionhouse/backend/internal/notification"
	"auctionhouse/backend/internal/scheduler"
	"auctionhouse/backend/internal/settlement"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Settler is implemented by *settlement.Service.
type Settler interface {
	CheckExpiredAuctions(ctx context.Context) (*settlement.BatchResult, error)
	NotifyRoomWinner(ctx context.Context, roomID string) (*notification.Result, error)
	NotifyPendingWinners(ctx context.Context) (*settlement.SweepResult, error)
}

// JobRunner is implemented by *scheduler.Scheduler.
type JobRunner interface {
	Start() error
	Stop()
	Restart() error
	Status() []scheduler.JobStatus
	Trigger(ctx context.Context, index int) error
}

type Handler struct {
	Settlement Settler
	Jobs       JobRunner
}

func NewHandler(s Settler, jobs JobRunner) *Handler {
	return &Handler{Settlement: s, Jobs: jobs}
}

func (h *Handler) fail(c *gin.Context, name string, err error, data any) {
	status, message := MapErrorToHTTP(err)
	JSONError(c, status, err, message, data)
	log.WithFields(log.Fields{"handler": name, "status": status}).WithError(err).Warn("request failed")
}

// CheckExpired handles POST /api/jobs/check-expired
func (h *Handler) CheckExpired(c *gin.Context) {
	batch, err := h.Settlement.CheckExpiredAuctions(c.Request.Context())
	if err != nil {
		h.fail(c, "CheckExpired", err, nil)
		return
	}
	JSONResponse(c, http.StatusOK, batch, "expired auctions processed")
}

// JobStatus handles GET /api/jobs/status
func (h *Handler) JobStatus(c *gin.Context) {
	JSONResponse(c, http.StatusOK, h.Jobs.Status(), "job status retrieved")
}

// StartJobs handles POST /api/jobs/start
func (h *Handler) StartJobs(c *gin.Context) {
	if err := h.Jobs.Start(); err != nil {
		h.fail(c, "StartJobs", err, nil)
		return
	}
	JSONResponse(c, http.StatusOK, h.Jobs.Status(), "jobs started")
}

// StopJobs handles POST /api/jobs/stop
func (h *Handler) StopJobs(c *gin.Context) {
	h.Jobs.Stop()
	JSONResponse(c, http.StatusOK, h.Jobs.Status(), "jobs stopped")
}

// RestartJobs handles POST /api/jobs/restart
func (h *Handler) RestartJobs(c *gin.Context) {
	if err := h.Jobs.Restart(); err != nil {
		h.fail(c, "RestartJobs", err, nil)
		return
	}
	JSONResponse(c, http.StatusOK, h.Jobs.Status(), "jobs restarted")
}

// TriggerJob handles POST /api/jobs/:index/trigger
func (h *Handler) TriggerJob(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		JSONError(c, http.StatusBadRequest, fmt.Errorf("invalid job index: %w", err), "invalid job index", nil)
		return
	}
	if err := h.Jobs.Trigger(c.Request.Context(), index); err != nil {
		h.fail(c, "TriggerJob", err, nil)
		return
	}
	JSONResponse(c, http.StatusOK, h.Jobs.Status()[index], "job triggered")
}

// NotifyWinner handles POST /api/auctions/:id/notify-winner
func (h *Handler) NotifyWinner(c *gin.Context) {
	roomID := c.Param("id")
	res, err := h.Settlement.NotifyRoomWinner(c.Request.Context(), roomID)
	if err != nil {
		var data any
		if res != nil {
			data = res
		}
		h.fail(c, "NotifyWinner", err, data)
		return
	}
	JSONResponse(c, http.StatusOK, res, "winner notified")
}

// NotifyPending handles POST /api/auctions/notify-pending
func (h *Handler) NotifyPending(c *gin.Context) {
	sweep, err := h.Settlement.NotifyPendingWinners(c.Request.Context())
	if err != nil {
		h.fail(c, "NotifyPending", err, nil)
		return
	}
	JSONResponse(c, http.StatusOK, sweep, "pending winner notifications processed")
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	JSONResponse(c, http.StatusOK, gin.H{"scheduler": h.schedulerState()}, "ok")
}

func (h *Handler) schedulerState() string {
	for _, st := range h.Jobs.Status() {
		if st.Running {
			return "running"
		}
	}
	return "stopped"
}

var errNotFound = errors.New("route not found")
