// cmd/gateway/main.go
//
// gateway is the minimal front-end: no gin, no auth tiers, no cache. It
// serves the recommendation surface over gorilla/mux for deployments that
// only need read-side access plus a raw CSV ingest hook.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/hospitalops/parlogic/internal/analysis"
	"github.com/hospitalops/parlogic/internal/cache"
	"github.com/hospitalops/parlogic/internal/config"
	"github.com/hospitalops/parlogic/internal/domain"
	"github.com/hospitalops/parlogic/internal/ingestion"
	"github.com/hospitalops/parlogic/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	cfg := config.Load()

	engine := analysis.NewEngine(cfg.Engine.ServiceLevel, cfg.Engine.ReviewPeriodDays)
	svc := service.NewInventoryService(engine, cache.NewNoopRecommendationCache(), nil)

	// Preload usage history when a data file is configured
	if dataFile := os.Getenv("GATEWAY_DATA_FILE"); dataFile != "" {
		if err := preload(engine, dataFile); err != nil {
			log.Fatalf("Failed to preload data file %s: %v", dataFile, err)
		}
		log.Printf("Preloaded usage history from %s", dataFile)
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.HandleFunc("/ingest", handleIngest(engine)).Methods("POST")
	r.HandleFunc("/api/v1/par/levels", handlePARLevels(svc)).Methods("GET")
	r.HandleFunc("/api/v1/recommendations", handleRecommendations(svc)).Methods("POST")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Gateway starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func preload(engine *analysis.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := ingestion.ParseTransactionsCSV(f)
	if err != nil {
		return err
	}

	return engine.SetData(records)
}

// handleIngest replaces the record set from a raw transaction-schema CSV
// body.
func handleIngest(engine *analysis.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := ingestion.ParseTransactionsCSV(r.Body)
		if err != nil {
			writeJSONError(w, err)
			return
		}
		if err := engine.SetData(records); err != nil {
			writeJSONError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": len(records)})
	}
}

func handlePARLevels(svc *service.InventoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := domain.AnalysisFilter{ItemID: r.URL.Query().Get("item_id")}
		levels, err := svc.PARLevels(r.Context(), filter)
		if err != nil {
			writeJSONError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"par_levels": levels})
	}
}

func handleRecommendations(svc *service.InventoryService) http.HandlerFunc {
	type request struct {
		ItemID       string             `json:"item_id"`
		CurrentStock map[string]float64 `json:"current_stock"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
				return
			}
		}

		recommendations, err := svc.Recommendations(r.Context(), domain.AnalysisFilter{ItemID: req.ItemID}, req.CurrentStock)
		if err != nil {
			writeJSONError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"recommendations": recommendations})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	var unknownItem *domain.UnknownItemError
	var notConfigured *domain.NotConfiguredError
	switch {
	case errors.As(err, &unknownItem):
		status = http.StatusNotFound
	case errors.As(err, &notConfigured):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]any{"error": err.Error()})
}
