package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/esgarath/wardenlevel/internal/roster"
	"github.com/esgarath/wardenlevel/pkg/changelog"
	"github.com/esgarath/wardenlevel/pkg/logger"
	"github.com/esgarath/wardenlevel/pkg/store"
)

// API serves the roster over JSON. Every read goes through the controller's
// view projections; every write goes through its guarded commands.
type API struct {
	roster *roster.Controller
	logger *logger.Logger
}

// NewAPI creates an API around a started controller.
func NewAPI(c *roster.Controller, l *logger.Logger) *API {
	return &API{roster: c, logger: l}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/players", a.handleListPlayers)
	mux.HandleFunc("POST /api/players", a.handleAddPlayer)
	mux.HandleFunc("DELETE /api/players/{id}", a.handleDeletePlayer)
	mux.HandleFunc("POST /api/players/{id}/toggle", a.handleToggleOnline)
	mux.HandleFunc("PUT /api/players/{id}/tiers", a.handleUpdateTiers)
	mux.HandleFunc("GET /api/professions/{name}/players", a.handleProfessionPlayers)
	mux.HandleFunc("GET /api/changes", a.handleListChanges)
	mux.HandleFunc("GET /api/status", a.handleStatus)
}

func (a *API) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	onlineOnly := r.URL.Query().Get("online") == "true"

	players := a.roster.MasterView(search, onlineOnly)
	a.writeJSON(w, http.StatusOK, players)
}

func (a *API) handleProfessionPlayers(w http.ResponseWriter, r *http.Request) {
	onlineOnly := r.URL.Query().Get("online") == "true"

	players := a.roster.ProfessionView(r.PathValue("name"), onlineOnly)
	a.writeJSON(w, http.StatusOK, players)
}

func (a *API) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.roster.AddPlayer(r.Context(), req.Name); err != nil {
		a.writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *API) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	// Deletion still requires the explicit confirmation flag; the HTTP
	// surface treats the request itself as confirmation.
	if err := a.roster.DeletePlayer(r.Context(), id, true); err != nil {
		a.writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleToggleOnline(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	if err := a.roster.ToggleOnline(r.Context(), id); err != nil {
		a.writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUpdateTiers(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	var req struct {
		Tiers map[string]string `json:"tiers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// A tiers update is one edit session: open the buffer, apply every
	// field, commit. Any rejection abandons the whole edit.
	if err := a.roster.BeginEdit(id); err != nil {
		a.writeCommandError(w, err)
		return
	}
	for profession, raw := range req.Tiers {
		if err := a.roster.UpdateEditBuffer(profession, raw); err != nil {
			a.roster.CancelEdit()
			a.writeCommandError(w, err)
			return
		}
	}
	if err := a.roster.CommitEdit(r.Context()); err != nil {
		a.writeCommandError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePayload struct {
	Event changelog.Event `json:"event"`
	Text  string          `json:"text"`
}

func (a *API) handleListChanges(w http.ResponseWriter, r *http.Request) {
	events := a.roster.Changes()

	payload := make([]changePayload, len(events))
	for i, ev := range events {
		payload[i] = changePayload{Event: ev, Text: changelog.Render(ev)}
	}
	a.writeJSON(w, http.StatusOK, payload)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := a.roster.ConnectionState()
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"connection":  string(state),
		"writer_id":   a.roster.WriterID(),
		"professions": a.roster.Professions(),
	})
}

func (a *API) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roster.ErrEmptyName),
		errors.Is(err, roster.ErrUnknownProfession),
		errors.Is(err, roster.ErrNotConfirmed):
		a.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, roster.ErrUnknownPlayer):
		a.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotConnected):
		a.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		a.logger.Error("command failed", err)
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
