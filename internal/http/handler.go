package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metno/sarwind/internal/domain"
	"github.com/metno/sarwind/internal/usecase"
)

// RetrievalLister reads back recorded retrievals.
type RetrievalLister interface {
	List(ctx context.Context, limit int) ([]usecase.RetrievalRecord, error)
}

// Handler handles HTTP requests for wind retrievals.
type Handler struct {
	processor *usecase.Processor
	lister    RetrievalLister
}

// NewHandler creates a new HTTP handler. The lister may be nil when no
// registry is configured.
func NewHandler(processor *usecase.Processor, lister RetrievalLister) *Handler {
	return &Handler{processor: processor, lister: lister}
}

// RetrievalRequest is the body of POST /v1/retrievals.
type RetrievalRequest struct {
	ScenePath string `json:"scene_path" binding:"required"`
	WindPath  string `json:"wind_path" binding:"required"`
}

// RetrievalResponse describes one completed retrieval.
type RetrievalResponse struct {
	SceneID     string         `json:"scene_id"`
	WindID      string         `json:"wind_id"`
	OutputPath  string         `json:"output_path"`
	ProcessedAt string         `json:"processed_at"`
	FlagCounts  map[string]int `json:"flag_counts"`
}

func toResponse(rec usecase.RetrievalRecord) RetrievalResponse {
	counts := make(map[string]int, len(rec.FlagCounts))
	for f, n := range rec.FlagCounts {
		counts[f.String()] = n
	}
	return RetrievalResponse{
		SceneID:     rec.SARID,
		WindID:      rec.WindID,
		OutputPath:  rec.OutputPath,
		ProcessedAt: rec.ProcessedAt.UTC().Format(time.RFC3339),
		FlagCounts:  counts,
	}
}

// CreateRetrieval handles POST /v1/retrievals.
func (h *Handler) CreateRetrieval(c *gin.Context) {
	var req RetrievalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.processor.Process(c.Request.Context(), req.ScenePath, req.WindPath)
	if err != nil {
		status := http.StatusInternalServerError
		var invalid *domain.InvalidInputError
		switch {
		case errors.Is(err, usecase.ErrAlreadyProcessed):
			status = http.StatusConflict
		case errors.As(err, &invalid):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toResponse(*rec))
}

// ListRetrievals handles GET /v1/retrievals.
func (h *Handler) ListRetrievals(c *gin.Context) {
	if h.lister == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "no retrieval registry configured"})
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	recs, err := h.lister.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]RetrievalResponse, len(recs))
	for i, rec := range recs {
		out[i] = toResponse(rec)
	}
	c.JSON(http.StatusOK, gin.H{"retrievals": out, "count": len(out)})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
