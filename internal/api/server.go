// Package api serves the world over HTTP. Players register, submit
// orders and read their country; the tick control plane sits behind a
// bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ancientworld/internal/engine"
	"ancientworld/internal/interpreter"
	"ancientworld/internal/store"
	"ancientworld/internal/world"
)

// Server exposes the game over HTTP.
type Server struct {
	Engine *engine.Engine
	Interp *interpreter.Interpreter
	Store  *store.Store
	Port   int

	// AdminKey gates the tick control plane. Empty disables it.
	// AdminIDs optionally narrows admin access to listed owner ids,
	// presented in the X-Owner-ID header.
	AdminKey string
	AdminIDs []int64

	// CORSOrigins lists browser origins allowed beyond localhost dev
	// servers.
	CORSOrigins []string
}

// Handler builds the route table. Split from Start for tests.
func (s *Server) Handler() http.Handler {
	// Orders consume generation quota; registration is cheap but
	// write-heavy enough to bound.
	orderLimiter := NewRateLimiter(30, time.Hour)
	registerLimiter := NewRateLimiter(5, time.Hour)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/world", s.handleWorld)
	mux.HandleFunc("/api/v1/countries", s.handleCountries)
	mux.HandleFunc("/api/v1/country/", s.handleCountryDetail)

	mux.HandleFunc("/api/v1/register", RateLimitMiddleware(registerLimiter, s.handleRegister))
	mux.HandleFunc("/api/v1/order", RateLimitMiddleware(orderLimiter, s.handleOrder))

	mux.HandleFunc("/api/v1/tick", s.adminOnly(s.handleTick))
	mux.HandleFunc("/api/v1/admin/country/", s.adminOnly(s.handleAdminCountry))

	return corsMiddleware(mux, s.CORSOrigins)
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware allows configured frontend origins. Localhost dev
// servers are always allowed.
func corsMiddleware(next http.Handler, extra []string) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range extra {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Owner-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminOnly requires the bearer token, and when AdminIDs is set, an
// allowlisted X-Owner-ID as well.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no WORLDBOT_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if len(s.AdminIDs) > 0 {
			ownerID, err := strconv.ParseInt(r.Header.Get("X-Owner-ID"), 10, 64)
			if err != nil || !containsID(s.AdminIDs, ownerID) {
				http.Error(w, "owner not allowlisted", http.StatusForbidden)
				return
			}
		}
		next(w, r)
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type registerRequest struct {
	OwnerID     int64  `json:"owner_id"`
	OwnerName   string `json:"owner_name"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleRegister founds a new country for an owner.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.OwnerID == 0 || req.Name == "" {
		http.Error(w, "owner_id and name are required", http.StatusBadRequest)
		return
	}

	country, err := s.Engine.NewCountry(r.Context(), req.OwnerID, req.OwnerName, req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"country": country,
		"status":  statusLine(country),
	})
}

type orderRequest struct {
	OwnerID int64  `json:"owner_id"`
	Text    string `json:"text"`
}

// handleOrder interprets and resolves one free-text order.
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	country, err := s.Store.GetCountryByOwner(r.Context(), req.OwnerID)
	if err != nil {
		writeError(w, err)
		return
	}

	action, err := s.Interp.Interpret(r.Context(), country.ID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := s.Engine.Resolve(r.Context(), action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"action":    summary.Action,
		"year":      world.FormatYear(summary.Year),
		"narration": summary.Narration,
		"country":   summary.Country,
		"status":    statusLine(summary.Country),
	})
}

// handleWorld reports the clock and the roster.
func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, err := s.Store.CurrentYear(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	countries, err := s.Store.ListCountries(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	lastTick, err := s.Store.LastTickAt(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	out := map[string]any{
		"year":      year,
		"year_text": world.FormatYear(year),
		"countries": len(countries),
	}
	if !lastTick.IsZero() {
		out["last_tick"] = lastTick
		out["last_tick_ago"] = humanize.Time(lastTick)
	}
	writeJSON(w, out)
}

// handleCountries lists the public roster.
func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.Store.ListCountries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	type entry struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Ruler  string `json:"ruler"`
		Status string `json:"status"`
	}
	out := make([]entry, 0, len(countries))
	for i := range countries {
		c := &countries[i]
		out = append(out, entry{
			ID: c.ID, Name: c.Name, Ruler: c.OwnerName,
			Status: statusLine(c),
		})
	}
	writeJSON(w, map[string]any{"countries": out})
}

// handleCountryDetail serves GET /api/v1/country/{id}: the country, its
// projects and its relations.
func (s *Server) handleCountryDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/api/v1/country/")
	if !ok {
		return
	}
	ctx := r.Context()

	country, err := s.Store.GetCountry(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	projects, err := s.Store.ListProjects(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	relations, err := s.Store.ListRelations(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"country":   country,
		"status":    statusLine(country),
		"projects":  projects,
		"relations": relations,
	})
}

// handleTick forces one world tick.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The tick holds the phase barrier; give it room beyond the request.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	summary, err := s.Engine.Tick(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"year":      world.FormatYear(summary.Year),
		"next_year": world.FormatYear(summary.NextYear),
		"events":    summary.Events,
		"chronicle": summary.Chronicle,
		"replayed":  summary.Replayed,
	})
}

// handleAdminCountry serves the full audit view of one country.
func (s *Server) handleAdminCountry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/api/v1/admin/country/")
	if !ok {
		return
	}
	ctx := r.Context()

	country, err := s.Store.GetCountry(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	actions, err := s.Store.RecentActions(ctx, id, 50)
	if err != nil {
		writeError(w, err)
		return
	}
	projects, err := s.Store.ListProjects(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	relations, err := s.Store.ListRelations(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"country":   country,
		"projects":  projects,
		"relations": relations,
		"actions":   actions,
	})
}

// pathID extracts the trailing numeric id of a prefixed route.
func pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.TrimSuffix(rest, "/")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid country id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusLine renders a one-line player-facing summary.
func statusLine(c *world.Country) string {
	line := fmt.Sprintf("%s: %s people, %s in the treasury, stability %d, military %d, territory %d",
		c.Name, humanize.Comma(c.Population), humanize.Comma(c.Treasury),
		c.Stability, c.Military, c.Territory)
	if len(c.Problems) > 0 {
		line += "; " + strings.Join(c.Problems, ", ")
	}
	return line
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, world.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, world.ErrDuplicateOwner):
		status = http.StatusConflict
	case errors.Is(err, world.ErrUnintelligibleOrder):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, world.ErrForbiddenAction):
		status = http.StatusForbidden
	case errors.Is(err, world.ErrConflict), errors.Is(err, world.ErrTransientFailure):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
