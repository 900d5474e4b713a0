package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PattaFeuFeu/Vernissage/internal/activity"
	"github.com/PattaFeuFeu/Vernissage/internal/config"
	"github.com/PattaFeuFeu/Vernissage/internal/metrics"
	"github.com/PattaFeuFeu/Vernissage/internal/model"
	"github.com/PattaFeuFeu/Vernissage/internal/sizecache"
	"github.com/PattaFeuFeu/Vernissage/internal/tracker"
)

type Server struct {
	cfg      *config.Manager
	sizes    *sizecache.Cache
	tracker  *tracker.Tracker
	activity *activity.Store
	metrics  *metrics.Store
	logger   *slog.Logger
	version  string
	started  time.Time
}

type statusResponse struct {
	Status     string `json:"status"`
	Time       string `json:"time"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	ConfigPath string `json:"config_path"`
	Driver     string `json:"storage_driver"`
	CacheTTL   string `json:"size_cache_ttl"`
	CacheLen   int    `json:"size_cache_entries"`
}

func Start(ctx context.Context, cfg *config.Manager, sizes *sizecache.Cache, tr *tracker.Tracker, activityStore *activity.Store, metricsStore *metrics.Store, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := NewServer(cfg, sizes, tr, activityStore, metricsStore, logger, version)
	httpServer := &http.Server{Addr: current.Addr, Handler: server.Handler()}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/sizes", s.handleSizes)
	mux.HandleFunc("/timeline/seen", s.handleSeen)
	mux.HandleFunc("/timeline/mark", s.handleMark)
	mux.HandleFunc("/admin/purge", s.handlePurge)
	mux.HandleFunc("/admin/clear", s.handleClear)
	mux.HandleFunc("/activity", s.handleActivity)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/metrics/", s.handleMetrics)
	return mux
}

// NewServer builds a Server without starting a listener, for tests and
// embedded use.
func NewServer(cfg *config.Manager, sizes *sizecache.Cache, tr *tracker.Tracker, activityStore *activity.Store, metricsStore *metrics.Store, logger *slog.Logger, version string) *Server {
	return &Server{
		cfg:      cfg,
		sizes:    sizes,
		tracker:  tr,
		activity: activityStore,
		metrics:  metricsStore,
		logger:   logger,
		version:  version,
		started:  time.Now().UTC(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	now := time.Now().UTC()
	resp := statusResponse{
		Status:     "ok",
		Time:       now.Format(time.RFC3339Nano),
		Version:    s.version,
		Uptime:     now.Sub(s.started).Truncate(time.Second).String(),
		ConfigPath: s.cfg.Path(),
		Driver:     cfg.Storage.Driver,
		CacheTTL:   cfg.SizeCache.TTL().String(),
		CacheLen:   s.sizes.Len(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSizes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		url := r.URL.Query().Get("url")
		if url == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		containerWidth := 0.0
		if v := r.URL.Query().Get("container_width"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				containerWidth = f
			}
		}
		if containerWidth <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		size := s.sizes.Calculate(url, containerWidth)
		writeJSON(w, http.StatusOK, size)
		return
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var req struct {
			URL    string  `json:"url"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.URL == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.sizes.Save(req.URL, req.Width, req.Height)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type seenRequest struct {
	AccountID string       `json:"account_id"`
	Status    model.Status `json:"status"`
}

func (s *Server) handleSeen(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSeenRequest(w, r)
	if !ok {
		return
	}
	seen := s.tracker.HasBeenSeen(r.Context(), req.AccountID, req.Status)
	writeJSON(w, http.StatusOK, map[string]any{"seen": seen})
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSeenRequest(w, r)
	if !ok {
		return
	}
	if err := s.tracker.RecordSeen(r.Context(), req.AccountID, req.Status); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	removed, err := s.tracker.PurgeStale(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "removed": removed})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.activity == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	sinceStr := r.URL.Query().Get("since")
	var list []activity.Event
	if sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.activity.Since(ts)
	} else {
		list = s.activity.List(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": list,
		"count":  len(list),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.metrics == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/metrics")
	path = strings.TrimPrefix(path, "/")
	if path != "" {
		stats, updated, ok := s.metrics.Get(path)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"account_id": path,
			"updated_at": updated.Format(time.RFC3339Nano),
			"stats":      stats,
		})
		return
	}
	all := s.metrics.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": all,
		"count":    len(all),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.activity != nil {
		s.activity.Clear()
	}
	if s.metrics != nil {
		s.metrics.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func decodeSeenRequest(w http.ResponseWriter, r *http.Request) (seenRequest, bool) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return seenRequest{}, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return seenRequest{}, false
	}
	var req seenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return seenRequest{}, false
	}
	if req.AccountID == "" || req.Status.ID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return seenRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
