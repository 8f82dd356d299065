package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"showdown/internal/game"
	"showdown/internal/render"
)

const (
	// MaxRequestBody caps JSON request bodies
	MaxRequestBody = 64 * 1024

	// DefaultEventPage is the /api/events page size when ?limit= is absent
	DefaultEventPage = 256
)

// Handler methods for routerHandlers

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	if snap == nil {
		writeError(w, "No match running", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"events": h.engine.GetEventLogStats(),
	}

	if ms, ok := h.engine.MatchStats(); ok {
		stats["match"] = map[string]interface{}{
			"entities":         ms.Entities,
			"projectiles":      ms.Projectiles,
			"hazards":          ms.Hazards,
			"scheduled":        ms.Scheduled,
			"projectilesFired": ms.ProjectilesFired,
			"damageDealt":      ms.DamageDealt,
			"grid":             ms.Grid,
		}
	}
	if snap := h.engine.GetSnapshot(); snap != nil {
		stats["matchId"] = snap.MatchID
		stats["tick"] = snap.Tick
		stats["elapsed"] = snap.Elapsed
		stats["outcome"] = snap.Outcome
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Roster().All())
}

type startMatchRequest struct {
	Character     string   `json:"character"`
	Mode          string   `json:"mode"`
	Bots          int      `json:"bots"`
	BotCharacters []string `json:"botCharacters"`
	Seed          int64    `json:"seed"`
}

func (h *routerHandlers) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	var req startMatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	snap, err := h.engine.StartMatch(game.MatchOptions{
		Character:     req.Character,
		Mode:          game.Mode(strings.ToLower(strings.TrimSpace(req.Mode))),
		Bots:          req.Bots,
		BotCharacters: req.BotCharacters,
		Seed:          req.Seed,
	})
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Printf("🎮 Match %s started via API (%s, %d entities)", snap.MatchID, snap.Mode, len(snap.Entities))
	writeJSONStatus(w, snap, http.StatusCreated)
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var in game.Input
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if h.engine.GetSnapshot() == nil {
		writeError(w, "No match running", http.StatusConflict)
		return
	}

	h.engine.SetInput(in)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var since uint64
	if s := q.Get("since"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeError(w, "since must be a non-negative integer", http.StatusBadRequest)
			return
		}
		since = v
	}

	limit := DefaultEventPage
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(v, game.EventBufferSize)
	}

	events := h.engine.Events(since, limit)
	last := since
	if len(events) > 0 {
		last = events[len(events)-1].Sequence
	}
	writeJSON(w, map[string]interface{}{
		"events": events,
		"last":   last,
	})
}

func (h *routerHandlers) handleMinimap(w http.ResponseWriter, r *http.Request) {
	size := h.defaultMinimapSize()
	if s := r.URL.Query().Get("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, "size must be an integer", http.StatusBadRequest)
			return
		}
		size = render.ClampSize(v)
	}

	snap := h.engine.GetSnapshot()
	if snap == nil {
		writeError(w, "No match running", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.WritePNG(w, snap, size); err != nil {
		log.Printf("⚠️ Minimap render failed: %v", err)
	}
}

// Helper functions (package-level for reuse)

// decodeBody reads a JSON body into v. An empty body leaves v zeroed.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, data, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
