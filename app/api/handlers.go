package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/newsroom/app/database"
)

const (
	defaultTrendLimit = 20
	maxTrendLimit     = 100
)

func NewHandler(control Controller, health HealthFunc, version string) *Handler {
	return &Handler{
		control: control,
		health:  health,
		version: version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"status":    "ok",
	}

	status := http.StatusOK
	if h.health != nil {
		details, err := h.health(c.Request.Context())
		for k, v := range details {
			health[k] = v
		}
		if err != nil {
			slog.Warn("Health check failed", "error", err)
			health["status"] = "unhealthy"
			health["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, health)
}

func (h *Handler) APIGetStats(c *gin.Context) {
	stats, err := h.control.QueueStats(c.Request.Context())
	if err != nil {
		slog.Error("Failed to read queue stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Queue error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"queues": stats})
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources, err := h.control.ListActiveSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]sourceResponse, 0, len(sources))
	for _, s := range sources {
		item := sourceResponse{
			ID:         s.ID,
			Name:       s.Name,
			URL:        s.URL,
			Category:   s.Category,
			Priority:   s.Priority,
			ErrorCount: s.ErrorCount,
		}
		if s.LastFetchedAt != nil {
			formatted := s.LastFetchedAt.In(time.Local).Format(time.RFC3339)
			item.LastFetchedAt = &formatted
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": response,
		"total":   len(response),
	})
}

func (h *Handler) APITriggerStage(c *gin.Context) {
	stage := c.Param("stage")

	if err := h.control.TriggerNow(stage); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	slog.Info("Stage triggered", "stage", stage)
	c.JSON(http.StatusAccepted, gin.H{"stage": stage, "status": "triggered"})
}

func (h *Handler) APIPauseQueues(c *gin.Context) {
	if err := h.control.PauseQueues(c.Request.Context()); err != nil {
		slog.Error("Failed to pause queues", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

func (h *Handler) APIResumeQueues(c *gin.Context) {
	if err := h.control.ResumeQueues(c.Request.Context()); err != nil {
		slog.Error("Failed to resume queues", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "resumed"})
}

// APIRecordView always accepts; the count is updated in the background.
func (h *Handler) APIRecordView(c *gin.Context) {
	h.control.RecordView(c.Param("id"))
	c.Status(http.StatusAccepted)
}

func (h *Handler) APIListTrends(c *gin.Context) {
	limit := defaultTrendLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxTrendLimit)
	}

	trends, err := h.control.UnprocessedTrends(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_trends", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	response := make([]trendResponse, 0, len(trends))
	for _, t := range trends {
		response = append(response, trendResponse{
			ID:         t.ID,
			Keyword:    t.Keyword,
			SourceKind: t.SourceKind,
			Score:      t.Score,
			Category:   t.Category,
			DetectedAt: t.DetectedAt.In(time.Local).Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"trends": response,
		"total":  len(response),
	})
}

func (h *Handler) APIMarkTrendProcessed(c *gin.Context) {
	id := c.Param("id")

	err := h.control.MarkTrendProcessed(c.Request.Context(), id)
	if errors.Is(err, database.ErrTrendNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trend not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "mark_trend_processed", "trend_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.Status(http.StatusNoContent)
}
