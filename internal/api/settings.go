package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"nodedesk/pkg/connection"
	"nodedesk/pkg/settings"
)

// SettingsStore is the store surface the settings endpoints use.
type SettingsStore interface {
	State() settings.State
	Connection() connection.Config
	Locales() []string
	ToggleUseExternalNode(enable bool)
	ToggleRunInternalNode(run bool)
	SaveExternalURL(url string) error
	SaveLogLevel(level string) error
	SaveExternalAPIKey(key string) error
	ChangeLanguage(lng string) error
}

var (
	errActionNotAllowed = errors.New("action is managed by the client and cannot be dispatched")
	errUnknownAction    = errors.New("unknown action type")
	errMissingData      = errors.New("missing data")
)

// maxActionBody bounds POST /api/settings/actions bodies.
const maxActionBody = 64 << 10

// SettingsHandler serves the settings record and accepts user actions.
type SettingsHandler struct {
	store   SettingsStore
	origins *OriginPolicy
}

// NewSettingsHandler creates a new SettingsHandler. Cross-origin action
// requests are answered only for origins the policy accepts.
func NewSettingsHandler(st SettingsStore, origins *OriginPolicy) *SettingsHandler {
	return &SettingsHandler{store: st, origins: origins}
}

// ActionRequest is the body of POST /api/settings/actions.
type ActionRequest struct {
	Type settings.ActionType `json:"type"`
	Data json.RawMessage     `json:"data"`
}

// LocalesResponse lists the selectable languages.
type LocalesResponse struct {
	Locales []string `json:"locales"`
	Current string   `json:"current"`
}

// HandleGet returns the current settings.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State())
}

// HandleConnection returns the resolved node endpoint and key.
func (h *SettingsHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Connection())
}

// HandleLocales returns the supported locales and the current one.
func (h *SettingsHandler) HandleLocales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LocalesResponse{
		Locales: h.store.Locales(),
		Current: h.store.State().Lng,
	})
}

// HandleAction dispatches a user action, facilitating CORS/OPTIONS for
// allowed origins.
func (h *SettingsHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Vary", "Origin")
	if origin := r.Header.Get("Origin"); origin != "" {
		if !h.origins.Allowed(origin) {
			writeError(w, http.StatusForbidden, errOriginNotAllowed)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxActionBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if err := h.apply(req); err != nil {
		slog.Debug("Settings API: action rejected", "type", req.Type, "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, h.store.State())
}

func (h *SettingsHandler) apply(req ActionRequest) error {
	switch req.Type {
	case settings.ActionToggleUseExternalNode:
		var enable bool
		if err := decodeData(req.Data, &enable); err != nil {
			return err
		}
		h.store.ToggleUseExternalNode(enable)
		return nil

	case settings.ActionToggleRunInternalNode:
		var run bool
		if err := decodeData(req.Data, &run); err != nil {
			return err
		}
		h.store.ToggleRunInternalNode(run)
		return nil

	case settings.ActionSaveExternalURL:
		var url string
		if err := decodeData(req.Data, &url); err != nil {
			return err
		}
		return h.store.SaveExternalURL(url)

	case settings.ActionSaveLogLevel:
		var level string
		if err := decodeData(req.Data, &level); err != nil {
			return err
		}
		return h.store.SaveLogLevel(level)

	case settings.ActionSetExternalKey:
		var key string
		if err := decodeData(req.Data, &key); err != nil {
			return err
		}
		return h.store.SaveExternalAPIKey(key)

	case settings.ActionChangeLanguage:
		var lng string
		if err := decodeData(req.Data, &lng); err != nil {
			return err
		}
		return h.store.ChangeLanguage(lng)

	case settings.ActionInitialize, settings.ActionUpdateUIVersion, settings.ActionSetInternalKey:
		return fmt.Errorf("%s: %w", req.Type, errActionNotAllowed)

	default:
		return fmt.Errorf("%q: %w", req.Type, errUnknownAction)
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errMissingData
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid data: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
