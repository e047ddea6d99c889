package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/AldairPetronilia/trading-project-sub002/internal/entsoe"
	"github.com/AldairPetronilia/trading-project-sub002/internal/models"
	"github.com/AldairPetronilia/trading-project-sub002/internal/repository"
	"github.com/AldairPetronilia/trading-project-sub002/internal/services"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/logging"
	"github.com/AldairPetronilia/trading-project-sub002/pkg/metrics"
)

// EnergyHandler handles energy data API endpoints
type EnergyHandler struct {
	energyService *services.EnergyService
	logger        *logging.StructuredLogger
	metrics       *metrics.Collector
}

// NewEnergyHandler creates a new energy data handler
func NewEnergyHandler(
	energyService *services.EnergyService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *EnergyHandler {
	return &EnergyHandler{
		energyService: energyService,
		logger:        logger,
		metrics:       metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// AreaResponse describes a supported market area
type AreaResponse struct {
	Code  string   `json:"code"`
	EIC   string   `json:"eic"`
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// GetRecords handles GET /api/v1/records
func (h *EnergyHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/v1/records").Observe(duration.Seconds())
	}()

	// Parse query parameters
	area := r.URL.Query().Get("area")
	dataType := r.URL.Query().Get("data_type")
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := 100

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := (page - 1) * limit

	// Build filter
	filter := repository.RecordFilter{
		Limit:  limit,
		Offset: offset,
	}

	if area != "" {
		if _, err := entsoe.AreaFromCode(area); err != nil {
			h.sendError(w, r, "unknown area code", http.StatusBadRequest)
			return
		}
		filter.Area = &area
	}

	if dataType != "" {
		dt := models.DataType(dataType)
		filter.DataType = &dt
	}

	if fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.sendError(w, r, "invalid from timestamp, expected RFC 3339", http.StatusBadRequest)
			return
		}
		filter.StartTime = &from
	}

	if toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.sendError(w, r, "invalid to timestamp, expected RFC 3339", http.StatusBadRequest)
			return
		}
		filter.EndTime = &to
	}

	records, total, err := h.energyService.GetRecords(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_RECORDS_ERROR] Failed to get records", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/v1/records")
		h.sendError(w, r, "failed to retrieve records", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       records,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/v1/records", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetBackfillProgress handles GET /api/v1/backfill
func (h *EnergyHandler) GetBackfillProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/v1/backfill").Observe(duration.Seconds())
	}()

	progress, err := h.energyService.GetBackfillProgress(ctx)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_BACKFILL_ERROR] Failed to get backfill progress", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/v1/backfill")
		h.sendError(w, r, "failed to retrieve backfill progress", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/v1/backfill", "GET", "200")
	h.sendJSON(w, map[string]interface{}{"data": progress}, http.StatusOK)
}

// GetAreas handles GET /api/v1/areas
func (h *EnergyHandler) GetAreas(w http.ResponseWriter, r *http.Request) {
	areas := entsoe.Areas()
	response := make([]AreaResponse, 0, len(areas))
	for _, a := range areas {
		types := make([]string, 0, len(a.Types))
		for _, t := range a.Types {
			types = append(types, string(t))
		}
		response = append(response, AreaResponse{
			Code:  a.Code,
			EIC:   a.EIC,
			Name:  a.Name,
			Types: types,
		})
	}

	h.metrics.RecordAPIRequest("/api/v1/areas", "GET", "200")
	h.sendJSON(w, map[string]interface{}{"data": response}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *EnergyHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.energyService.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_FAILED] Database health check failed", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, http.StatusServiceUnavailable)
		return
	}

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *EnergyHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *EnergyHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all energy API routes
func (h *EnergyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/records", h.GetRecords).Methods("GET")
	router.HandleFunc("/api/v1/backfill", h.GetBackfillProgress).Methods("GET")
	router.HandleFunc("/api/v1/areas", h.GetAreas).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
