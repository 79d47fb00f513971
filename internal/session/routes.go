package session

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes exposes the registry as read-only JSON endpoints and its
// metrics in Prometheus text format under /metrics.
func (r *Registry) RegisterRoutes(router *mux.Router) {
	metrics := prometheus.NewRegistry()
	metrics.MustRegister(r)

	router.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/runs", r.handleList).Methods("GET")
	router.HandleFunc("/runs/{id}", r.handleRun).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")
}

func (r *Registry) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, r.Reports())
}

func (r *Registry) handleRun(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	run, ok := r.Report(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found: " + id})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Session] Failed to encode response: %v", err)
	}
}
