// Package adminapi is pgvault's HTTP control plane: shard listing and
// pause/resume, Prometheus metrics, and health/readiness probes for an
// orchestrator. It never touches the PostgreSQL wire protocol itself —
// that's internal/proxy's job — it only reports on and mutates the same
// admin.Surface and gatewaypool.Pools the wire-level SHOW/PAUSE/RESUME
// commands use, so the two control surfaces can never disagree.
package adminapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pgvault/pgvault/internal/admin"
	"github.com/pgvault/pgvault/internal/gatewaypool"
	"github.com/pgvault/pgvault/internal/health"
	"github.com/pgvault/pgvault/internal/metrics"
)

// Server is pgvault's REST API and metrics server.
type Server struct {
	pools     *gatewaypool.Pools
	admin     *admin.Surface
	health    *health.Checker
	metrics   *metrics.Collector
	startTime time.Time
	port      int

	httpServer *http.Server
}

// NewServer builds an adminapi.Server. health may be nil if no health
// checker is configured.
func NewServer(pools *gatewaypool.Pools, adm *admin.Surface, hc *health.Checker, m *metrics.Collector, port int) *Server {
	return &Server{pools: pools, admin: adm, health: hc, metrics: m, port: port, startTime: time.Now()}
}

// Start begins serving HTTP in a background goroutine.
func (s *Server) Start() error {
	r := mux.NewRouter()

	r.HandleFunc("/shards", s.listShards).Methods("GET")
	r.HandleFunc("/shards/{name}", s.getShard).Methods("GET")
	r.HandleFunc("/shards/{name}/pause", s.pauseShard).Methods("POST")
	r.HandleFunc("/shards/{name}/resume", s.resumeShard).Methods("POST")

	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/ready", s.readyHandler).Methods("GET")

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.HandleFunc("/", s.dashboardHandler).Methods("GET")
	r.HandleFunc("/dashboard", s.dashboardHandler).Methods("GET")

	addr := fmt.Sprintf("0.0.0.0:%d", s.port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("adminapi: " + err.Error())
		}
	}()
	return nil
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

type shardResponse struct {
	Name   string              `json:"name"`
	Stats  *gatewaypool.Stats  `json:"stats,omitempty"`
	Health *health.ShardHealth `json:"health,omitempty"`
	Paused bool                `json:"paused"`
}

func (s *Server) shardView(name string) (shardResponse, bool) {
	resp := shardResponse{Name: name}
	found := false
	for _, st := range s.pools.AllStats() {
		if st.Shard == name {
			stCopy := st
			resp.Stats = &stCopy
			found = true
			break
		}
	}
	if !found {
		return shardResponse{}, false
	}
	if s.admin != nil {
		resp.Paused = s.admin.IsPaused(name)
	}
	if s.health != nil {
		h := s.health.GetStatus(name)
		resp.Health = &h
	}
	return resp, true
}

func (s *Server) listShards(w http.ResponseWriter, r *http.Request) {
	var result []shardResponse
	for _, st := range s.pools.AllStats() {
		if resp, ok := s.shardView(st.Shard); ok {
			result = append(result, resp)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getShard(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	resp, ok := s.shardView(name)
	if !ok {
		writeError(w, http.StatusNotFound, "shard not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) pauseShard(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := s.pools.Get(name); !ok {
		writeError(w, http.StatusNotFound, "shard not found")
		return
	}
	if s.admin != nil {
		s.admin.Execute(admin.ParsedCommand{Cmd: admin.Pause, Shard: name})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused", "shard": name})
}

func (s *Server) resumeShard(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := s.pools.Get(name); !ok {
		writeError(w, http.StatusNotFound, "shard not found")
		return
	}
	if s.admin != nil {
		s.admin.Execute(admin.ParsedCommand{Cmd: admin.Resume, Shard: name})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed", "shard": name})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_mb":      float64(mem.Alloc) / 1024 / 1024,
		"num_shards":     len(s.pools.Names()),
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy", "shards": map[string]string{}})
		return
	}
	allHealthy := s.health.OverallHealthy()
	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"status": boolToStatus(allHealthy),
		"shards": s.health.GetAllStatuses(),
	})
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	names := s.pools.Names()
	if len(names) == 0 || s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	for _, name := range names {
		if s.health.IsHealthy(name) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func boolToStatus(b bool) string {
	if b {
		return "healthy"
	}
	return "unhealthy"
}
