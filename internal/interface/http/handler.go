package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asase/envreport/internal/domain/report"
)

// Handler wires the HTTP transport to the report service.
type Handler struct {
	reports report.Service
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(reports report.Service, logger *slog.Logger) *Handler {
	return &Handler{
		reports: reports,
		logger:  logger.With("component", "http.handler"),
	}
}

// CreateReport runs the pipeline for a location and country.
func (h *Handler) CreateReport(c *gin.Context) {
	var req report.CreateRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.reports.Create(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Location", "/api/v1/reports/"+resp.Slug)
	c.JSON(http.StatusCreated, resp)
}

// GetReport returns one stored snapshot.
func (h *Handler) GetReport(c *gin.Context) {
	resp, err := h.reports.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListReports returns a filtered page of snapshots.
func (h *Handler) ListReports(c *gin.Context) {
	var req report.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.reports.List(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListLocations returns the newest snapshot for every location seen so far.
func (h *Handler) ListLocations(c *gin.Context) {
	items, err := h.reports.DistinctLocations(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": items})
}

// LocationReports returns the hub for one location.
func (h *Handler) LocationReports(c *gin.Context) {
	hub, err := h.reports.ListForLocation(c.Request.Context(), c.Param("location"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, hub)
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
