package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/pgvault/pgvault/internal/admin"
	"github.com/pgvault/pgvault/internal/gatewaypool"
)

func newTestServer() (*Server, *mux.Router) {
	pools := gatewaypool.NewPools([]gatewaypool.ShardConfig{
		{Name: "shard0", Host: "localhost", Port: 5432, Username: "u", MaxConns: 5},
		{Name: "shard1", Host: "localhost", Port: 5432, Username: "u", MaxConns: 5},
	})
	adm := &admin.Surface{Pools: pools}
	s := NewServer(pools, adm, nil, nil, 0)

	mr := mux.NewRouter()
	mr.HandleFunc("/shards", s.listShards).Methods("GET")
	mr.HandleFunc("/shards/{name}", s.getShard).Methods("GET")
	mr.HandleFunc("/shards/{name}/pause", s.pauseShard).Methods("POST")
	mr.HandleFunc("/shards/{name}/resume", s.resumeShard).Methods("POST")
	mr.HandleFunc("/status", s.statusHandler).Methods("GET")
	mr.HandleFunc("/health", s.healthHandler).Methods("GET")
	mr.HandleFunc("/ready", s.readyHandler).Methods("GET")

	return s, mr
}

func TestListShards(t *testing.T) {
	_, mr := newTestServer()

	req := httptest.NewRequest("GET", "/shards", nil)
	rr := httptest.NewRecorder()
	mr.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got []shardResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 shards, got %d", len(got))
	}
}

func TestGetShardNotFound(t *testing.T) {
	_, mr := newTestServer()

	req := httptest.NewRequest("GET", "/shards/nope", nil)
	rr := httptest.NewRecorder()
	mr.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPauseAndResumeShard(t *testing.T) {
	s, mr := newTestServer()

	req := httptest.NewRequest("POST", "/shards/shard0/pause", nil)
	rr := httptest.NewRecorder()
	mr.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !s.admin.IsPaused("shard0") {
		t.Error("expected shard0 to be paused")
	}

	req = httptest.NewRequest("GET", "/shards/shard0", nil)
	rr = httptest.NewRecorder()
	mr.ServeHTTP(rr, req)
	var got shardResponse
	json.Unmarshal(rr.Body.Bytes(), &got)
	if !got.Paused {
		t.Error("expected shard0's JSON view to report paused=true")
	}

	req = httptest.NewRequest("POST", "/shards/shard0/resume", nil)
	rr = httptest.NewRecorder()
	mr.ServeHTTP(rr, req)
	if s.admin.IsPaused("shard0") {
		t.Error("expected shard0 to no longer be paused")
	}
}

func TestPauseUnknownShard(t *testing.T) {
	_, mr := newTestServer()

	req := httptest.NewRequest("POST", "/shards/nope/pause", nil)
	rr := httptest.NewRecorder()
	mr.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestStatusHandler(t *testing.T) {
	_, mr := newTestServer()

	req := httptest.NewRequest("GET", "/status", nil)
	rr := httptest.NewRecorder()
	mr.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &got)
	if got["num_shards"].(float64) != 2 {
		t.Errorf("expected num_shards=2, got %v", got["num_shards"])
	}
}

func TestHealthHandlerWithoutChecker(t *testing.T) {
	_, mr := newTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	mr.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when no health checker is configured, got %d", rr.Code)
	}
}

func TestReadyHandlerWithoutChecker(t *testing.T) {
	_, mr := newTestServer()

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()
	mr.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
