package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rmtavares/splitbook/internal/logging"
)

type record struct {
	Content   json.RawMessage `json:"content"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type recordStore struct {
	mu      sync.Mutex
	records map[string]record
}

func (s *recordStore) get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	s.mu.Lock()
	rec, ok := s.records[key]
	s.mu.Unlock()

	if !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		slog.Error("failed to write record", "error", err)
	}
}

func (s *recordStore) put(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var rec record
	if err := json.Unmarshal(body, &rec); err != nil {
		http.Error(w, "invalid record payload", http.StatusBadRequest)
		return
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	_, existed := s.records[key]
	s.records[key] = rec
	s.mu.Unlock()

	slog.Info("record stored", "key", key, "bytes", len(rec.Content))
	if existed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func main() {
	logging.Init("mock-remote", "info", os.Getenv("APP_ENV"))

	store := &recordStore{records: make(map[string]record)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	})
	mux.HandleFunc("GET /records/{key}", store.get)
	mux.HandleFunc("PUT /records/{key}", store.put)

	addr := ":8081"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	slog.Info("mock remote started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
