package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/regwatch/app/database"
	"github.com/medtrack/regwatch/app/feed"
	"github.com/medtrack/regwatch/app/sources"
)

const defaultUpdateLimit = 50

func NewHandler(registry *sources.Registry, sourceRepo database.SourceRepository,
	updateRepo database.UpdateRepository, processor SourceProcessor,
	sched SchedulerInfo) *Handler {
	return &Handler{
		registry:   registry,
		sourceRepo: sourceRepo,
		updateRepo: updateRepo,
		processor:  processor,
		scheduler:  sched,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}
	if updateCount, err := h.updateRepo.GetUpdateCount(); err == nil {
		health["updates"] = updateCount
	}

	health["loaded_definitions"] = h.registry.GetSourceCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"scheduler_state": h.scheduler.State().String(),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		stats["sources"] = sourceCount
	}
	if activeCount, err := h.sourceRepo.GetActiveSourceCount(); err == nil {
		stats["active_sources"] = activeCount
	}
	if updateCount, err := h.updateRepo.GetUpdateCount(); err == nil {
		stats["updates"] = updateCount
	}
	if priorityCounts, err := h.updateRepo.GetUpdateCountsByPriority(); err == nil {
		stats["updates_by_priority"] = priorityCounts
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListUpdates(c *gin.Context) {
	authority := c.Query("authority")
	priority := c.Query("priority")

	limit := defaultUpdateLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = parsed
	}

	updates, err := h.updateRepo.GetRecentUpdates(authority, priority, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_updates", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	list := make([]map[string]interface{}, 0, len(updates))
	for i := range updates {
		list = append(list, updateInfo(&updates[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(list),
		"updates": list,
	})
}

func updateInfo(update *database.RegulatoryUpdate) map[string]interface{} {
	return map[string]interface{}{
		"identifier":   update.Identifier,
		"title":        update.Title,
		"content":      update.Content,
		"source":       update.Source,
		"region":       update.Region,
		"update_type":  update.UpdateType,
		"priority":     update.Priority,
		"published_at": update.PublishedAt.Format(time.RFC3339),
		"categories":   update.Categories,
		"source_name":  update.SourceName,
		"link":         update.Link,
	}
}

func (h *Handler) GetUpdate(c *gin.Context) {
	identifier := c.Param("identifier")

	update, err := h.updateRepo.GetUpdateByIdentifier(identifier)
	if err != nil {
		slog.Error("Database error", "operation", "get_update", "identifier", identifier, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if update == nil {
		c.Status(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, updateInfo(update))
}

func (h *Handler) ListSources(c *gin.Context) {
	definitions := h.registry.GetSources()

	list := make([]map[string]interface{}, 0, len(definitions))
	for _, source := range definitions {
		info := map[string]interface{}{
			"name":            source.Name,
			"url":             source.URL,
			"authority":       source.Authority,
			"region":          source.Region,
			"update_type":     source.UpdateType,
			"active":          source.Active,
			"check_frequency": (time.Duration(source.CheckFrequency) * time.Minute).String(),
		}

		if row, err := h.sourceRepo.GetSource(source.Name); err == nil && row != nil {
			info["last_checked_at"] = row.LastCheckedAt
			if row.FeedTitle != "" {
				info["feed_title"] = row.FeedTitle
			}
			if row.FeedLanguage != "" {
				info["feed_language"] = row.FeedLanguage
			}
			if row.FeedLastBuildAt != nil {
				info["feed_last_build_at"] = row.FeedLastBuildAt
			}
		}

		list = append(list, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(list),
		"sources": list,
	})
}

// APIPollSource ingests one source immediately, outside the scheduler
// cadence. Key-gated.
func (h *Handler) APIPollSource(c *gin.Context) {
	name := c.Param("name")

	source, err := h.registry.GetSource(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
		return
	}

	stats, err := h.processor.Run(c.Request.Context(), source)
	if err != nil {
		slog.Error("On-demand ingestion failed", "source", name, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if err := h.sourceRepo.UpdateLastChecked(name, time.Now().UTC()); err != nil {
		slog.Warn("Failed to update last checked time", "source", name, "error", err)
	}

	c.JSON(http.StatusOK, pollResponse(stats))
}

func pollResponse(stats feed.Stats) gin.H {
	return gin.H{
		"total":           stats.Total,
		"new":             stats.New,
		"duplicates":      stats.Duplicates,
		"near_duplicates": stats.NearDuplicates,
		"failed":          stats.Failed,
	}
}
