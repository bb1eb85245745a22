package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tdnguyen-dev/recognition-be/internal/api/dto"
	"github.com/tdnguyen-dev/recognition-be/internal/domain"
	"github.com/tdnguyen-dev/recognition-be/internal/fetcher"
	"github.com/tdnguyen-dev/recognition-be/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	defaultFetchTimeout = 30 * time.Second
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger          *slog.Logger
	submitter       JobSubmitter
	resultFetcher   ResultFetcher
	jobs            JobReader
	fetchMaxTimeout time.Duration
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:          deps.Logger,
		submitter:       deps.Submitter,
		resultFetcher:   deps.Fetcher,
		jobs:            deps.Jobs,
		fetchMaxTimeout: deps.FetchMaxTimeout,
	}
}

// SubmitJob handles POST /api/v1/jobs
// Charges the caller and enqueues a recognition job.
func (h *JobHandler) SubmitJob(c *gin.Context) {
	userID := CurrentUserID(c)

	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job, err := h.submitter.Submit(c.Request.Context(), userID, req.PredictorID, req.Payload, req.Filename)
	if err != nil {
		h.renderSubmitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewJobDTO(job))
}

func (h *JobHandler) renderSubmitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPredictorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Failed to submit job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit job"})
	}
}

// GetJob handles GET /api/v1/jobs/:job_id
// Retrieves detailed information about one of the caller's jobs.
func (h *JobHandler) GetJob(c *gin.Context) {
	userID := CurrentUserID(c)

	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	// Jobs are only visible to their owner.
	if job.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs
// Lists the caller's jobs with optional status filtering and cursor pagination.
func (h *JobHandler) ListJobs(c *gin.Context) {
	userID := CurrentUserID(c)

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := store.JobFilter{
		UserID:   userID,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = dto.NewJobDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&store.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// CancelJob handles POST /api/v1/jobs/:job_id/cancel
// Cancels a job no worker has claimed yet and refunds the charge.
func (h *JobHandler) CancelJob(c *gin.Context) {
	userID := CurrentUserID(c)

	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.submitter.Cancel(c.Request.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.Is(err, domain.ErrAlreadyInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to cancel job", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel job"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}

// GetJobResult handles GET /api/v1/jobs/:job_id/result
// Blocks until the job reaches a terminal state or the timeout elapses.
func (h *JobHandler) GetJobResult(c *gin.Context) {
	userID := CurrentUserID(c)

	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	timeout := defaultFetchTimeout
	if raw := c.Query("timeout"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "timeout must be a positive integer of seconds",
			})
			return
		}
		timeout = time.Duration(seconds) * time.Second
	}
	if h.fetchMaxTimeout > 0 && timeout > h.fetchMaxTimeout {
		timeout = h.fetchMaxTimeout
	}

	job, err := h.resultFetcher.Fetch(c.Request.Context(), userID, jobID, timeout)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		case errors.Is(err, fetcher.ErrFetchTimeout):
			c.JSON(http.StatusRequestTimeout, gin.H{
				"error":  "Timed out waiting for result",
				"job_id": jobID,
			})
		default:
			h.logger.Error("Failed to fetch job result", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch result"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}
