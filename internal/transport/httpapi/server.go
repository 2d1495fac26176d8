// Package httpapi serves the dashboard's JSON API: the status snapshot, the
// hooks configuration surface, and the on-demand diagnostic run.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/airglowhq/airglow-status-backend/internal/config"
	"github.com/airglowhq/airglow-status-backend/internal/domain/status"
	"github.com/airglowhq/airglow-status-backend/internal/infra/diag"
	"github.com/airglowhq/airglow-status-backend/internal/infra/ledfx"
	"github.com/airglowhq/airglow-status-backend/internal/version"
)

// Collector produces the status snapshot.
type Collector interface {
	Collect(ctx context.Context) status.Snapshot
}

// ConfigStore reads and writes the hooks configuration.
type ConfigStore interface {
	Load() (config.HooksConfig, error)
	Save(config.HooksConfig) error
}

// VirtualsLister exposes the live LedFX virtuals, used to validate the IDs a
// config save refers to.
type VirtualsLister interface {
	Virtuals(ctx context.Context) ledfx.VirtualsStatus
}

// DiagRunner executes the full diagnostic check.
type DiagRunner interface {
	RunFull(ctx context.Context) diag.Result
}

// ContainerControl restarts a fleet container.
type ContainerControl interface {
	Restart(ctx context.Context, name string) error
}

// Server is the HTTP API.
type Server struct {
	mux        *http.ServeMux
	collector  Collector
	store      ConfigStore
	virtuals   VirtualsLister
	diagnostic DiagRunner
	containers ContainerControl
	limiter    *RateLimiter
}

// fleet containers the restart endpoint will touch; anything else is a 404.
var restartable = map[string]bool{
	status.ContainerLedFX:     true,
	status.ContainerShairport: true,
}

// NewServer wires the API routes.
func NewServer(collector Collector, store ConfigStore, virtuals VirtualsLister, diagnostic DiagRunner, containers ContainerControl, limiter *RateLimiter) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		collector:  collector,
		store:      store,
		virtuals:   virtuals,
		diagnostic: diagnostic,
		containers: containers,
		limiter:    limiter,
	}

	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/config", s.handleGetConfig)
	s.mux.HandleFunc("POST /api/config", s.handleSaveConfig)
	s.mux.HandleFunc("POST /api/diagnose", s.handleDiagnose)
	s.mux.HandleFunc("POST /api/containers/{name}/restart", s.handleRestart)
	s.mux.HandleFunc("GET /api/version", s.handleVersion)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Collect(r.Context()))
}

// configResponse is the GET /api/config payload.
type configResponse struct {
	Hooks             hookFlags          `json:"hooks"`
	Virtuals          config.HooksConfig `json:"virtuals"`
	AvailableVirtuals []string           `json:"available_virtuals"`
}

type hookFlags struct {
	StartHookEnabled bool `json:"start_hook_enabled"`
	EndHookEnabled   bool `json:"end_hook_enabled"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read hook config")
		writeError(w, http.StatusInternalServerError, "Error reading configuration")
		return
	}

	available := []string{}
	if live := s.virtuals.Virtuals(r.Context()); live.Connected {
		for id := range live.Virtuals {
			available = append(available, id)
		}
	}

	writeJSON(w, http.StatusOK, configResponse{
		Hooks: hookFlags{
			StartHookEnabled: cfg.Start.Enabled,
			EndHookEnabled:   cfg.End.Enabled,
		},
		Virtuals:          cfg,
		AvailableVirtuals: available,
	})
}

// saveConfigRequest is the POST /api/config payload.
type saveConfigRequest struct {
	StartEnabled bool        `json:"start_enabled"`
	EndEnabled   bool        `json:"end_enabled"`
	StartHook    hookRequest `json:"start_hook"`
	EndHook      hookRequest `json:"end_hook"`
}

type hookRequest struct {
	AllVirtuals *bool                `json:"all_virtuals"`
	Virtuals    []config.HookVirtual `json:"virtuals"`
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req saveConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	available := map[string]bool{}
	if live := s.virtuals.Virtuals(r.Context()); live.Connected {
		for id := range live.Virtuals {
			available[id] = true
		}
	}

	if msg := validateHook("start", req.StartHook, available); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateHook("end", req.EndHook, available); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	cfg := config.HooksConfig{
		Start: config.Hook{
			Enabled:     req.StartEnabled,
			AllVirtuals: allVirtuals(req.StartHook),
			Virtuals:    hookVirtuals(req.StartHook),
		},
		End: config.Hook{
			Enabled:     req.EndEnabled,
			AllVirtuals: allVirtuals(req.EndHook),
			Virtuals:    hookVirtuals(req.EndHook),
		},
	}

	if err := s.store.Save(cfg); err != nil {
		log.Error().Err(err).Msg("Failed to save hook config")
		writeError(w, http.StatusInternalServerError, "Error saving configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// validateHook checks the virtual IDs and repeat counts of one hook against
// the live LedFX virtuals. All-virtuals hooks need no validation.
func validateHook(name string, hook hookRequest, available map[string]bool) string {
	if allVirtuals(hook) {
		return ""
	}
	for _, v := range hook.Virtuals {
		if v.ID != "" && !available[v.ID] {
			return fmt.Sprintf("Invalid virtual ID in %s hook: %s", name, v.ID)
		}
		if v.Repeats < 0 {
			return fmt.Sprintf("Invalid repeats for %s in %s hook: must be integer >= 0", v.ID, name)
		}
	}
	return ""
}

func allVirtuals(hook hookRequest) bool {
	if hook.AllVirtuals != nil {
		return *hook.AllVirtuals
	}
	return true
}

func hookVirtuals(hook hookRequest) []config.HookVirtual {
	if hook.Virtuals == nil {
		return []config.HookVirtual{}
	}
	return hook.Virtuals
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	client := clientIP(r)
	if !s.limiter.Allow(client) {
		log.Warn().Str("client", client).Msg("Diagnostic rate limit exceeded")
		writeJSON(w, http.StatusTooManyRequests, diag.Result{
			Error:      "Rate limit exceeded. Please wait before running diagnostics again.",
			ReturnCode: http.StatusTooManyRequests,
		})
		return
	}

	result := s.diagnostic.RunFull(r.Context())
	code := http.StatusOK
	if !result.Success && result.Output == "" {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, result)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !restartable[name] {
		writeError(w, http.StatusNotFound, "Unknown container")
		return
	}

	if err := s.containers.Restart(r.Context(), name); err != nil {
		log.Error().Err(err).Str("container", name).Msg("Container restart failed")
		writeError(w, http.StatusInternalServerError, "Error restarting container")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// clientIP extracts the client identity used for rate limiting.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
