package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"

	"github.com/orrn/ticketspool/internal/core"
	"github.com/orrn/ticketspool/internal/db"
	"github.com/orrn/ticketspool/internal/pkg/clock"
)

const (
	dateLayout          = "2006-01-02"
	defaultCounterRange = 7 * 24 * time.Hour
)

type PrintQueue interface {
	Enqueue(order core.Order, kind core.ReceiptKind) (string, error)
	Status() core.QueueStatus
	Clear() int
}

type JobHistory interface {
	ListJobs(ctx context.Context, filter db.JobFilter) ([]*db.PrintJob, error)
	GetJobByID(ctx context.Context, id string) (*db.PrintJob, error)
}

type CounterHistory interface {
	GetCounters(ctx context.Context, from, to time.Time) ([]*db.PrintCounter, error)
}

type NativeHandoff interface {
	Pending() []core.NativeDocument
	Complete(id, failure string) error
}

type CreateJobRequest struct {
	Order core.Order       `json:"order" binding:"required"`
	Kind  core.ReceiptKind `json:"kind" binding:"required"`
}

type CreateJobResponse struct {
	ID string `json:"id"`
}

type PreviewRequest struct {
	Order     core.Order       `json:"order" binding:"required"`
	Kind      core.ReceiptKind `json:"kind" binding:"required"`
	Transport core.Transport   `json:"transport"`
}

type JobResponse struct {
	ID            string           `json:"id"`
	Kind          core.ReceiptKind `json:"kind"`
	OrderID       string           `json:"orderId"`
	Transport     core.Transport   `json:"transport"`
	State         core.JobState    `json:"state"`
	RetryCount    int              `json:"retryCount"`
	LastError     string           `json:"lastError,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	NextAttemptAt *time.Time       `json:"nextAttemptAt,omitempty"`
}

type QueueResponse struct {
	Jobs         []JobResponse `json:"jobs"`
	IsProcessing bool          `json:"isProcessing"`
}

type ListHistoryQuery struct {
	Status  string `form:"status" binding:"omitempty,oneof=completed failed"`
	OrderID string `form:"order_id"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
}

type CountersQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

type CompleteNativeRequest struct {
	Error string `json:"error"`
}

type JobHandler struct {
	queue    PrintQueue
	renderer core.ReceiptRenderer
	configs  core.ConfigSource
	jobs     JobHistory
	counters CounterHistory
	native   NativeHandoff
	clock    clock.Clock
}

func NewJobHandler(
	queue PrintQueue,
	renderer core.ReceiptRenderer,
	configs core.ConfigSource,
	jobs JobHistory,
	counters CounterHistory,
	native NativeHandoff,
	clk clock.Clock,
) *JobHandler {
	return &JobHandler{
		queue:    queue,
		renderer: renderer,
		configs:  configs,
		jobs:     jobs,
		counters: counters,
		native:   native,
		clock:    clk,
	}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	id, err := h.queue.Enqueue(req.Order, req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, CreateJobResponse{ID: id})
}

func (h *JobHandler) GetQueue(c *gin.Context) {
	status := h.queue.Status()
	resp := QueueResponse{Jobs: make([]JobResponse, 0, len(status.Jobs)), IsProcessing: status.IsProcessing}
	for _, job := range status.Jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(job))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *JobHandler) ClearQueue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cleared": h.queue.Clear()})
}

// Preview renders without queueing. The transport defaults to the one
// currently configured.
func (h *JobHandler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cfg := h.configs.Get()
	if req.Transport != "" {
		cfg.Transport = req.Transport
	}

	payload, err := h.renderer.Render(req.Order, req.Kind, cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, payload.ContentType, payload.Data)
}

func (h *JobHandler) ListHistory(c *gin.Context) {
	var q ListHistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), db.JobFilter{
		Status:  q.Status,
		OrderID: q.OrderID,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *JobHandler) GetHistoryJob(c *gin.Context) {
	job, err := h.jobs.GetJobByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Job not found"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) GetCounters(c *gin.Context) {
	var q CountersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	to := h.clock.Now()
	from := to.Add(-defaultCounterRange)
	var err error
	if q.From != "" {
		if from, err = time.Parse(dateLayout, q.From); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_date", Message: "from must be YYYY-MM-DD"})
			return
		}
	}
	if q.To != "" {
		if to, err = time.Parse(dateLayout, q.To); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_date", Message: "to must be YYYY-MM-DD"})
			return
		}
	}

	counters, err := h.counters.GetCounters(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counters": counters})
}

func (h *JobHandler) ListNativePending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"documents": h.native.Pending()})
}

// CompleteNative is called by the browser after its print dialog closes.
func (h *JobHandler) CompleteNative(c *gin.Context) {
	var req CompleteNativeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	if err := h.native.Complete(c.Param("id"), req.Error); err != nil {
		if errors.Is(err, core.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Document not pending"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func toJobResponse(job core.Job) JobResponse {
	var resp JobResponse
	_ = copier.Copy(&resp, &job)
	resp.Transport = job.Payload.Transport
	resp.NextAttemptAt = nil
	if !job.NextAttemptAt.IsZero() && job.State == core.JobPending {
		next := job.NextAttemptAt
		resp.NextAttemptAt = &next
	}
	return resp
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/print/jobs", h.CreateJob)
	r.GET("/print/queue", h.GetQueue)
	r.DELETE("/print/queue", h.ClearQueue)
	r.POST("/print/preview", h.Preview)
	r.GET("/print/history", h.ListHistory)
	r.GET("/print/history/:id", h.GetHistoryJob)
	r.GET("/print/counters", h.GetCounters)
	r.GET("/print/native/pending", h.ListNativePending)
	r.POST("/print/native/:id/done", h.CompleteNative)
}
