package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/blockchain"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
	"github.com/Dosik13/AMMs-deepdive/internal/router"
)

// newHTTPServer exposes health, metrics, and the read-only history API.
func newHTTPServer(port int, engine *router.Engine, pool *blockchain.ClientPool, metrics *observability.Metrics, logger *observability.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		healthy := pool.HealthyEndpointCount()
		status := http.StatusOK
		state := "ok"
		if healthy == 0 {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		writeJSON(w, status, map[string]any{
			"status":            state,
			"healthy_endpoints": healthy,
		})
	})

	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /v1/history/swaps", func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"caller": caller,
			"swaps":  engine.History().Swaps(caller),
		})
	})

	mux.HandleFunc("GET /v1/history/liquidity", func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerParam(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"caller":  caller,
			"actions": engine.History().LiquidityActions(caller),
		})
	})

	mux.HandleFunc("GET /v1/totals", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"total_swaps":             engine.TotalSwaps(),
			"total_liquidity_actions": engine.TotalLiquidityActions(),
		})
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("HTTP server listening", "address", addr)

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

// callerParam parses the required ?caller= query parameter.
func callerParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := r.URL.Query().Get("caller")
	if !common.IsHexAddress(raw) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "caller must be a hex address",
		})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
