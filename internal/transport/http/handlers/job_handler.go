package handlers

import (
	"encoding/json"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/bookline/ballast/internal/domain/repository"
	"github.com/bookline/ballast/internal/transport/http/response"
	"github.com/gin-gonic/gin"
)

type enqueueJobRequest struct {
	Queue       string          `json:"queue"`
	JobType     string          `json:"job_type" binding:"required"`
	Payload     json.RawMessage `json:"payload"`
	MaxAttempts int             `json:"max_attempts"`
	RunAfter    *time.Time      `json:"run_after"`
}

func (h *Handler) enqueueJob(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}
	var req enqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	job, err := h.svc.Jobs.Enqueue(c.Request.Context(), tenantID, req.Queue, req.JobType, req.Payload, req.MaxAttempts, req.RunAfter)
	if err != nil {
		respondServiceError(c, err, "enqueue failed")
		return
	}
	response.RespondOK(c, nethttp.StatusCreated, job, nil)
}

func (h *Handler) getJob(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	job, err := h.svc.Jobs.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "get job failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, job, nil)
}

func (h *Handler) listJobs(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	jobs, err := h.svc.Jobs.List(c.Request.Context(), repository.JobFilter{
		TenantID: tenantID,
		Queue:    c.Query("queue"),
		Status:   c.Query("status"),
		Limit:    limit,
	})
	if err != nil {
		respondServiceError(c, err, "list jobs failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, jobs, nil)
}

func (h *Handler) retryJob(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	job, err := h.svc.Jobs.Retry(c.Request.Context(), tenantID, id)
	if err != nil {
		respondServiceError(c, err, "retry failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, job, nil)
}

func (h *Handler) cancelJob(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	job, err := h.svc.Jobs.Cancel(c.Request.Context(), tenantID, id)
	if err != nil {
		respondServiceError(c, err, "cancel failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, job, nil)
}

type cleanupJobsRequest struct {
	OlderThanHours int      `json:"older_than_hours"`
	Statuses       []string `json:"statuses"`
}

func (h *Handler) cleanupJobs(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}
	var req cleanupJobsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, nethttp.StatusBadRequest, err.Error())
		return
	}

	removed, err := h.svc.Jobs.Cleanup(c.Request.Context(), tenantID, req.OlderThanHours, req.Statuses)
	if err != nil {
		respondServiceError(c, err, "cleanup failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, gin.H{"deleted": removed}, nil)
}

func (h *Handler) jobsHealth(c *gin.Context) {
	tenantID, ok := optionalTenant(c)
	if !ok {
		return
	}

	health, err := h.svc.Jobs.Health(c.Request.Context(), tenantID)
	if err != nil {
		respondServiceError(c, err, "health check failed")
		return
	}
	response.RespondOK(c, nethttp.StatusOK, health, nil)
}
