package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/meridian-protocol/sce/internal/engine"
	"github.com/meridian-protocol/sce/internal/logger"
	"github.com/meridian-protocol/sce/internal/state"
	"github.com/meridian-protocol/sce/internal/types"
	"github.com/meridian-protocol/sce/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the engine's read-only queries and the receipt journal
// over HTTP. Every endpoint is a query; nothing here can mutate the ledger.
type WebServer struct {
	router *mux.Router
	engine *engine.CoreEngine
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, core *engine.CoreEngine) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		engine: core,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/assets", ws.handleGetAssets).Methods("GET")
	api.HandleFunc("/assets/{denom}/quote", ws.handleGetQuote).Methods("GET")
	api.HandleFunc("/accounts/{address}", ws.handleGetAccount).Methods("GET")
	api.HandleFunc("/accounts/{address}/health-factor", ws.handleGetHealthFactor).Methods("GET")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")
	api.HandleFunc("/risk-parameters", ws.handleGetRiskParameters).Methods("GET")

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

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	}
	if err := state.TestDBConnection(); err != nil {
		status["database"] = "unavailable"
	} else {
		status["database"] = "ok"
	}
	ws.writeJSON(w, http.StatusOK, status)
}

// handleGetAssets lists the registered collateral denoms with the current
// USD price of one whole (1e18) unit of each.
func (ws *WebServer) handleGetAssets(w http.ResponseWriter, r *http.Request) {
	oneUnit := sdkmath.NewIntWithDecimal(1, 18)

	type assetView struct {
		Asset         types.Asset `json:"asset"`
		UnitUSD       string      `json:"unit_usd"`
		UnitUSDApprox float64     `json:"unit_usd_approx"`
	}

	var assets []assetView
	for _, asset := range ws.engine.RegisteredAssets() {
		value, err := ws.engine.GetUsdValue(asset.Denom, oneUnit)
		if err != nil {
			ws.writeError(w, http.StatusBadGateway, err)
			return
		}
		approx, err := utils.SDKIntToFloat64(value, 18)
		if err != nil {
			ws.writeError(w, http.StatusInternalServerError, err)
			return
		}
		assets = append(assets, assetView{
			Asset:         asset,
			UnitUSD:       value.String(),
			UnitUSDApprox: approx,
		})
	}
	ws.writeJSON(w, http.StatusOK, assets)
}

// handleGetQuote converts a USD amount (plain decimal, e.g. ?usd=4000.50)
// into a quantity of the asset at the current oracle price.
func (ws *WebServer) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	denom := mux.Vars(r)["denom"]

	usdParam := r.URL.Query().Get("usd")
	usdFloat, err := strconv.ParseFloat(usdParam, 64)
	if err != nil {
		ws.writeError(w, http.StatusBadRequest, err)
		return
	}
	usdAmount, err := utils.Float64ToSDKInt(usdFloat, 18)
	if err != nil {
		ws.writeError(w, http.StatusBadRequest, err)
		return
	}

	quantity, err := ws.engine.GetTokenAmountFromUsd(denom, usdAmount)
	if err != nil {
		ws.writeError(w, http.StatusBadRequest, err)
		return
	}

	ws.writeJSON(w, http.StatusOK, map[string]string{
		"denom":    denom,
		"usd":      usdAmount.String(),
		"quantity": quantity.String(),
	})
}

func (ws *WebServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	summary, err := ws.engine.AccountSummary(address)
	if err != nil {
		ws.writeError(w, http.StatusBadGateway, err)
		return
	}

	// Populate the display-only float values.
	for i := range summary.Collateral {
		approx, err := utils.SDKIntToFloat64(summary.Collateral[i].ValueUSD, 18)
		if err == nil {
			summary.Collateral[i].EstimatedValue = approx
		}
	}

	ws.writeJSON(w, http.StatusOK, summary)
}

func (ws *WebServer) handleGetHealthFactor(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	hf, err := ws.engine.GetHealthFactor(address)
	if err != nil {
		ws.writeError(w, http.StatusBadGateway, err)
		return
	}

	ws.writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":       address,
		"health_factor": hf.String(),
		"liquidatable":  ws.engine.GetDebt(address).IsPositive() && hf.LT(ws.engine.RiskParameters().MinHealthFactor),
	})
}

func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	receipts, err := state.LoadRecentReceipts(limit)
	if err != nil {
		ws.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	ws.writeJSON(w, http.StatusOK, receipts)
}

func (ws *WebServer) handleGetRiskParameters(w http.ResponseWriter, r *http.Request) {
	params := ws.engine.RiskParameters()
	ws.writeJSON(w, http.StatusOK, map[string]string{
		"liquidation_threshold": params.LiquidationThreshold.String(),
		"liquidation_precision": params.LiquidationPrecision.String(),
		"liquidation_bonus":     params.LiquidationBonus.String(),
		"min_health_factor":     params.MinHealthFactor.String(),
	})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (ws *WebServer) writeError(w http.ResponseWriter, status int, err error) {
	webLogger.Warn().Err(err).Int("status", status).Msg("Request failed")
	ws.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
