package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/elys-network/wlp/internal/engine"
	"github.com/elys-network/wlp/internal/logger"
	"github.com/elys-network/wlp/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for engine data and operations. Reads are
// served from the database; mutating endpoints go through the serialized
// engine handle.
type WebServer struct {
	router *mux.Router
	handle *engine.Handle
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(handle *engine.Handle, port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		handle: handle,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/events/latest", ws.handleGetLatestEvent).Methods("GET")
	api.HandleFunc("/events/{id}", ws.handleGetEvent).Methods("GET")
	api.HandleFunc("/parameters", ws.handleGetParameters).Methods("GET")
	api.HandleFunc("/status", ws.handleGetStatus).Methods("GET")
	api.HandleFunc("/snapshots/latest", ws.handleGetLatestSnapshot).Methods("GET")
	api.HandleFunc("/engine/summary", ws.handleGetEngineSummary).Methods("GET")
	api.HandleFunc("/performance", ws.handleGetPerformanceMetrics).Methods("GET")

	api.HandleFunc("/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/redeem", ws.handleRedeem).Methods("POST")
	api.HandleFunc("/redeem/safe", ws.handleSafeRedeem).Methods("POST")
	api.HandleFunc("/adjust", ws.handleAdjust).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var hasErrors bool

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	operations, err := state.GetCurrentOperationNumber()
	if err != nil {
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "wlp-position-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"total_operations": operations,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetEvents returns paginated engine events
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	events, err := state.GetRecentEvents(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	response := map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetEvent returns a specific engine event by ID
func (ws *WebServer) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idStr := vars["id"]

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	event, err := state.GetEventByID(id)
	if err != nil {
		webLogger.Error().Err(err).Int64("eventId", id).Msg("Failed to get event")
		ws.writeErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, event)
}

// handleGetLatestEvent returns the most recent engine event
func (ws *WebServer) handleGetLatestEvent(w http.ResponseWriter, r *http.Request) {
	events, err := state.GetRecentEvents(1)
	if err != nil || len(events) == 0 {
		webLogger.Error().Err(err).Msg("Failed to get latest event")
		ws.writeErrorResponse(w, http.StatusNotFound, "No events found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, events[0])
}

// handleGetParameters returns current engine parameters
func (ws *WebServer) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	params, err := state.LoadActiveEngineParameters("default")
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get engine parameters")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve engine parameters")
		return
	}

	response := map[string]interface{}{
		"parameters": params,
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetStatus returns the live in-memory engine state, as opposed to the
// persisted view served by the summary endpoint
func (ws *WebServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := ws.handle.Snapshot()

	unrealized, err := ws.handle.UnrealizedRatio()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to compute unrealized ratio")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to read pool state")
		return
	}
	unrealizedFloat, _ := unrealized.Float64()

	navDisplay, err := ws.handle.NAVDisplay()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to compute display NAV")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to read ledger state")
		return
	}

	paramsID, err := state.GetActiveEngineParametersID("default")
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to read active parameters ID")
	}

	response := map[string]interface{}{
		"position":         snapshot,
		"nav_display":      navDisplay,
		"unrealized_ratio": unrealizedFloat,
		"active_params_id": paramsID,
		"timestamp":        time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetLatestSnapshot returns the position snapshot persisted with the
// most recent event
func (ws *WebServer) handleGetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := state.GetLatestSnapshot()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get latest snapshot")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshot")
		return
	}
	if snapshot == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "No snapshots recorded yet")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetEngineSummary returns engine summary statistics
func (ws *WebServer) handleGetEngineSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := state.GetEngineSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get engine summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve engine summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetPerformanceMetrics returns performance metrics
func (ws *WebServer) handleGetPerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := state.GetPerformanceMetrics()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get performance metrics")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve performance metrics")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, metrics)
}

type depositRequest struct {
	Account string `json:"account"`
	Denom   string `json:"denom"`
	Amount  string `json:"amount"`
}

// handleDeposit runs a single-sided deposit through the engine
func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Account == "" || req.Denom == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "account and denom are required")
		return
	}
	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	shares, err := ws.handle.AddLiquidity(req.Account, req.Denom, amount)
	if err != nil {
		ws.writeEngineError(w, err, "Deposit failed")
		return
	}
	ws.recordOperation()

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"shares_out": shares.String(),
	})
}

type redeemRequest struct {
	Account      string `json:"account"`
	Shares       string `json:"shares"`
	MinTargetOut string `json:"min_target_out"`
}

// handleRedeem burns shares and pays out target asset
func (ws *WebServer) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	shares, ok := sdkmath.NewIntFromString(req.Shares)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid shares")
		return
	}
	minOut := sdkmath.ZeroInt()
	if req.MinTargetOut != "" {
		minOut, ok = sdkmath.NewIntFromString(req.MinTargetOut)
		if !ok {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid min_target_out")
			return
		}
	}

	targetOut, err := ws.handle.RedeemLiquidity(req.Account, shares, minOut)
	if err != nil {
		ws.writeEngineError(w, err, "Redemption failed")
		return
	}
	ws.recordOperation()

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"target_out": targetOut.String(),
	})
}

// handleSafeRedeem burns shares and pays out reserve plus raw liquidity
func (ws *WebServer) handleSafeRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	shares, ok := sdkmath.NewIntFromString(req.Shares)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid shares")
		return
	}

	targetOut, liquidityOut, err := ws.handle.SafeRedeemLiquidity(req.Account, shares)
	if err != nil {
		ws.writeEngineError(w, err, "Safe redemption failed")
		return
	}
	ws.recordOperation()

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"target_out":    targetOut.String(),
		"liquidity_out": liquidityOut.String(),
	})
}

// handleAdjust forces a corrective step
func (ws *WebServer) handleAdjust(w http.ResponseWriter, r *http.Request) {
	if err := ws.handle.Adjust(); err != nil {
		ws.writeEngineError(w, err, "Adjustment failed")
		return
	}
	ws.recordOperation()

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"position": ws.handle.Snapshot(),
	})
}

func (ws *WebServer) recordOperation() {
	if _, err := state.IncrementOperationNumber(); err != nil {
		webLogger.Error().Err(err).Msg("Failed to increment operation counter")
	}
}

// writeEngineError maps engine errors to HTTP status codes
func (ws *WebServer) writeEngineError(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrZeroAmount),
		errors.Is(err, engine.ErrUnsupportedAsset),
		errors.Is(err, engine.ErrInsufficientShares):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrSlippageExceeded):
		status = http.StatusConflict
	}

	webLogger.Error().Err(err).Int("status", status).Msg(message)
	ws.writeErrorResponse(w, status, message+": "+err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
