// internal/api/handlers/inventory_handler.go
package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hospitalops/parlogic/internal/domain"
	"github.com/hospitalops/parlogic/internal/service"
	"github.com/rs/zerolog/log"
)

type InventoryHandler struct {
	service   *service.InventoryService
	uploadDir string
}

func NewInventoryHandler(svc *service.InventoryService, uploadDir string) *InventoryHandler {
	return &InventoryHandler{service: svc, uploadDir: uploadDir}
}

// parseFilter reads item_id / start_date / end_date query params. Dates use
// YYYY-MM-DD; end_date is inclusive through the whole day.
func (h *InventoryHandler) parseFilter(c *gin.Context) (domain.AnalysisFilter, bool) {
	filter := domain.AnalysisFilter{
		ItemID: strings.TrimSpace(c.Query("item_id")),
	}

	if raw := strings.TrimSpace(c.Query("start_date")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return filter, false
		}
		filter.StartDate = t
	}

	if raw := strings.TrimSpace(c.Query("end_date")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
			return filter, false
		}
		filter.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}

	return filter, true
}

// Upload receives multipart CSV/XLSX files and replaces the record set.
// The schema query param selects the ingestion schema (transactions by
// default, supply for external purchase-order exports).
func (h *InventoryHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	uploaded := make([]domain.UploadedFile, 0, len(files))
	for _, file := range files {
		path := filepath.Join(h.uploadDir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, path); err != nil {
			log.Error().Err(err).Str("filename", file.Filename).Msg("failed to save uploaded file")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save uploaded file"})
			return
		}
		uploaded = append(uploaded, domain.UploadedFile{
			Filename: file.Filename,
			Path:     path,
			Size:     file.Size,
		})
	}

	result, issues, err := h.service.IngestFiles(c.Request.Context(), uploaded, c.Query("schema"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File processed successfully",
		"result":  result,
		"issues":  issues,
	})
}

// MonthlyUsage returns per-(month, item) usage aggregates.
func (h *InventoryHandler) MonthlyUsage(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	aggregates, err := h.service.MonthlyUsage(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"monthly_usage": aggregates})
}

// UsageRange returns per-item monthly-total range statistics.
func (h *InventoryHandler) UsageRange(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	ranges, err := h.service.UsageRange(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage_range": ranges})
}

// Seasonality returns per-item seasonality profiles.
func (h *InventoryHandler) Seasonality(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	profiles, err := h.service.Seasonality(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"seasonality": profiles})
}

// PARLevels returns per-item PAR levels.
func (h *InventoryHandler) PARLevels(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	levels, err := h.service.PARLevels(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"par_levels": levels})
}

type leadTimeRequest struct {
	ItemID string `json:"item_id" binding:"required"`
	Days   int    `json:"days" binding:"required"`
}

// SetLeadTime upserts the lead time for one item.
func (h *InventoryHandler) SetLeadTime(c *gin.Context) {
	var req leadTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id and days are required"})
		return
	}

	if err := h.service.SetLeadTime(c.Request.Context(), req.ItemID, req.Days); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item_id": req.ItemID, "lead_time_days": req.Days})
}

type recommendationsRequest struct {
	CurrentStock map[string]float64 `json:"current_stock"`
}

// Recommendations classifies current stock against PAR levels. Items
// missing from current_stock are treated as zero on hand.
func (h *InventoryHandler) Recommendations(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	var req recommendationsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	recommendations, err := h.service.Recommendations(c.Request.Context(), filter, req.CurrentStock)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}

// writeError maps the engine's error taxonomy onto HTTP status codes. The
// message body is the error text verbatim.
func writeError(c *gin.Context, err error) {
	var (
		schemaErr       *domain.SchemaError
		coercionErr     *domain.TypeCoercionError
		notConfigured   *domain.NotConfiguredError
		unknownItem     *domain.UnknownItemError
		invalidArgument *domain.InvalidArgumentError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &schemaErr),
		errors.As(err, &coercionErr),
		errors.As(err, &invalidArgument):
		status = http.StatusBadRequest
	case errors.As(err, &unknownItem):
		status = http.StatusNotFound
	case errors.As(err, &notConfigured):
		status = http.StatusConflict
	default:
		log.Error().Err(err).Msg("request failed")
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
