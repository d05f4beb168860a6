package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Jobly-Solutions/steeltiger-middleware/internal/domain"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/export"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/refresh"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/infrastructure/steeltiger"
	"github.com/Jobly-Solutions/steeltiger-middleware/internal/usecase"
)

const (
	serviceName = "steeltiger-middleware"
	version     = "1.0.0"
)

// Refresher reloads every dataset on demand
type Refresher interface {
	Refresh(ctx context.Context) (refresh.Result, error)
	// LastFailures maps each dataset that failed its latest fetch to the error
	LastFailures() map[string]string
}

// Authorizer registers an email against the ERP license
type Authorizer interface {
	Authorize(ctx context.Context, email string) (steeltiger.AuthResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	queries    *usecase.QueryService
	datasets   *usecase.DatasetService
	refresher  Refresher
	authorizer Authorizer
}

// NewHandler creates a new HTTP handler. Refresher and authorizer may be nil
// when no ERP credentials are configured.
func NewHandler(queries *usecase.QueryService, datasets *usecase.DatasetService, refresher Refresher, authorizer Authorizer) *Handler {
	return &Handler{
		queries:    queries,
		datasets:   datasets,
		refresher:  refresher,
		authorizer: authorizer,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  serviceName,
		"version":  version,
		"datasets": h.datasets.Summaries(c.Request.Context()),
	})
}

// ListDatasets returns every known dataset with its row count
func (h *Handler) ListDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": h.datasets.Summaries(c.Request.Context())})
}

// GetDataset returns the rows of one dataset, optionally filtered by q and
// projected to fields
func (h *Handler) GetDataset(c *gin.Context) {
	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	ds, err := h.datasets.Browse(c.Request.Context(), c.Param("key"), usecase.BrowseOptions{
		Query:  c.Query("q"),
		Fields: usecase.ParseFields(c.Query("fields")),
		Limit:  limit,
	})
	if errors.Is(err, domain.ErrUnknownDataset) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "available": usecase.KnownDatasets})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dataset read failed"})
		return
	}

	c.JSON(http.StatusOK, ds)
}

// Search looks for a substring across datasets
func (h *Handler) Search(c *gin.Context) {
	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	hits, err := h.datasets.Search(c.Request.Context(), c.Query("query"), usecase.ParseFields(c.Query("dataset")), usecase.ParseFields(c.Query("fields")), limit)
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
		return
	case errors.Is(err, domain.ErrUnknownDataset):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "available": usecase.KnownDatasets})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(hits), "results": hits})
}

// Join pairs the rows of two datasets sharing a key value
func (h *Handler) Join(c *gin.Context) {
	left, right := strings.TrimSpace(c.Query("left")), strings.TrimSpace(c.Query("right"))
	if left == "" || right == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "left and right datasets are required"})
		return
	}
	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	result, err := h.datasets.Join(c.Request.Context(), left, right, c.Query("leftKey"), c.Query("rightKey"), limit)
	switch {
	case errors.Is(err, domain.ErrUnknownDataset):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "available": usecase.KnownDatasets})
		return
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "join failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Diagnostic checks the ERP authorization and reports the state of every
// stored dataset
func (h *Handler) Diagnostic(c *gin.Context) {
	ctx := c.Request.Context()

	authorization := gin.H{"success": false}
	if h.authorizer == nil {
		authorization["error"] = "ERP provider not configured"
	} else if result, err := h.authorizer.Authorize(ctx, ""); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("diagnostic authorization failed")
		authorization["error"] = err.Error()
	} else {
		authorization = gin.H{"success": result.OK, "status": result.Status, "response": result.Response}
	}

	var failures map[string]string
	if h.refresher != nil {
		failures = h.refresher.LastFailures()
	}

	datasets := make(map[string]gin.H, len(usecase.KnownDatasets))
	for _, summary := range h.datasets.Summaries(ctx) {
		entry := gin.H{
			"success": true,
			"count":   summary.Count,
			"hasData": summary.Count > 0,
		}
		if !summary.FetchedAt.IsZero() {
			entry["lastFetched"] = summary.FetchedAt
		}
		if msg, failed := failures[summary.Key]; failed {
			entry["success"] = false
			entry["error"] = msg
		}
		datasets[summary.Key] = entry
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"timestamp":     time.Now().UTC(),
		"authorization": authorization,
		"datasets":      datasets,
	})
}

// Refresh authorizes against the ERP (best effort) and reloads every dataset
func (h *Handler) Refresh(c *gin.Context) {
	if h.refresher == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "ERP provider not configured"})
		return
	}

	ctx := c.Request.Context()
	log := zerolog.Ctx(ctx)

	if h.authorizer != nil {
		if _, err := h.authorizer.Authorize(ctx, ""); err != nil {
			log.Warn().Err(err).Msg("authorization before refresh failed")
		}
	}

	result, err := h.refresher.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Strs("failed", result.Failed).Msg("refresh failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"ok":       false,
			"error":    "Refresh failed",
			"failed":   result.Failed,
			"datasets": result.Datasets,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"refreshedAt": result.RefreshedAt,
		"datasets":    result.Datasets,
	})
}

// Authorize registers an email (or the configured one) with the ERP
func (h *Handler) Authorize(c *gin.Context) {
	if h.authorizer == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "ERP provider not configured"})
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	result, err := h.authorizer.Authorize(c.Request.Context(), strings.TrimSpace(body.Email))
	if errors.Is(err, domain.ErrProviderNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("authorization failed")
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "authorization failed"})
		return
	}

	status := http.StatusOK
	if !result.OK {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

// Query answers a free-text price question posted as JSON
func (h *Handler) Query(c *gin.Context) {
	var body queryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.answer(c, body.unwrap().toRequest())
}

// QuerySimple answers a question passed as query parameters
func (h *Handler) QuerySimple(c *gin.Context) {
	limit, _ := parseLimit(c.Query("limit"))
	h.answer(c, domain.QueryRequest{
		Question: c.Query("question"),
		Limit:    limit,
	})
}

func (h *Handler) answer(c *gin.Context, req domain.QueryRequest) {
	if h.queries == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "query service not configured"})
		return
	}

	zerolog.Ctx(c.Request.Context()).Info().
		Str("question", req.Question).
		Bool("has_phone", req.PhoneNumber != "").
		Str("product_code", req.ProductCode).
		Int("limit", req.Limit).
		Msg("price question received")

	result, err := h.queries.Answer(c.Request.Context(), req)
	if errors.Is(err, domain.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI query failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportCatalog streams the product catalog as an xlsx workbook
func (h *Handler) ExportCatalog(c *gin.Context) {
	data, err := export.CatalogXLSX(h.datasets.Catalog(c.Request.Context()))
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("catalog export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="catalogo.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, data)
}

// ExportDatasets downloads every stored dataset, as a zip archive by default
// or as one JSON object keyed by dataset with format=json
func (h *Handler) ExportDatasets(c *gin.Context) {
	ctx := c.Request.Context()
	datasets := h.datasets.All(ctx)
	exportedAt := h.datasets.Now().UTC()
	stamp := exportedAt.Format("20060102-150405")

	switch c.DefaultQuery("format", "zip") {
	case "json":
		all := make(map[string]domain.Dataset, len(datasets))
		for _, ds := range datasets {
			all[ds.Meta.Dataset] = ds
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="datasets-%s.json"`, stamp))
		c.JSON(http.StatusOK, all)
	case "zip":
		var buf bytes.Buffer
		if err := export.WriteDatasetArchive(&buf, datasets, exportedAt); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("dataset archive failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="datasets-%s.zip"`, stamp))
		c.Data(http.StatusOK, export.ArchiveContentType, buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be zip or json"})
	}
}

// ExportCatalogJSON serves every product with its prices as a JSON download
func (h *Handler) ExportCatalogJSON(c *gin.Context) {
	catalog := h.datasets.CatalogExport(c.Request.Context())

	zerolog.Ctx(c.Request.Context()).Info().
		Int("products", catalog.Meta.Products).
		Int("priced", catalog.Meta.Priced).
		Msg("catalog exported")

	filename := fmt.Sprintf("catalogo-%s.json", catalog.Meta.ExportedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.JSON(http.StatusOK, catalog)
}
