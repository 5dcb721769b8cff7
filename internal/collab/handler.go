package collab

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gorilla/mux"

	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/editor"
	"github.com/rfaga/storyteller/internal/game"
	"github.com/rfaga/storyteller/internal/render"
)

const SampleTemplate = "sample"

var templateName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// TokenIssuer mints access tokens for new sessions.
type TokenIssuer interface {
	IssueToken(sessionID string) (string, error)
}

// Handler serves the session HTTP API.
type Handler struct {
	hub         *Hub
	tokens      TokenIssuer
	repo        game.Repository
	textures    *render.MemoryTextures
	templateDir string
	width       int
	height      int
	onSaved     func(name string)
}

type HandlerConfig struct {
	Hub         *Hub
	Tokens      TokenIssuer
	Repo        game.Repository
	Textures    *render.MemoryTextures
	TemplateDir string
	Width       int
	Height      int
	// OnSaved runs after a session is saved to the repository.
	OnSaved func(name string)
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		hub:         cfg.Hub,
		tokens:      cfg.Tokens,
		repo:        cfg.Repo,
		textures:    cfg.Textures,
		templateDir: cfg.TemplateDir,
		width:       cfg.Width,
		height:      cfg.Height,
		onSaved:     cfg.OnSaved,
	}
}

type createRequest struct {
	Template string `json:"template"`
}

type createResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type stateResponse struct {
	SessionID     string            `json:"sessionId"`
	Objects       []document.Object `json:"objects"`
	GeneratedCode string            `json:"generatedCode"`
	State         editor.State      `json:"state"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	objects, err := h.loadTemplate(req.Template)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	room, err := h.hub.Create(r.Context(), objects)
	if err != nil {
		slog.Error("create session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	token, err := h.tokens.IssueToken(room.ID())
	if err != nil {
		slog.Error("issue token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{SessionID: room.ID(), Token: token})
}

// loadTemplate resolves the starting scene. An empty name starts empty.
func (h *Handler) loadTemplate(name string) ([]document.Object, error) {
	switch {
	case name == "":
		return nil, nil
	case name == SampleTemplate:
		return document.NewSampleScene(), nil
	case !templateName.MatchString(name):
		return nil, fmt.Errorf("invalid template name %q", name)
	}

	f, err := os.Open(filepath.Join(h.templateDir, name+".yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return document.DecodeScene(f)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}

	var resp stateResponse
	err := room.View(r.Context(), func(s *editor.Session) {
		resp = stateResponse{
			SessionID:     room.ID(),
			Objects:       s.Objects(),
			GeneratedCode: s.Code(),
			State:         s.State(),
		}
	})
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	req, ok := decodeName(w, r)
	if !ok {
		return
	}

	var rec game.Record
	if err := room.View(r.Context(), func(s *editor.Session) { rec = s.Export(req.Name) }); err != nil {
		writeRoomError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), rec); err != nil {
		if errors.Is(err, game.ErrInvalidRecord) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if errors.Is(err, game.ErrNameTaken) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("save game failed", "error", err, "session", room.ID())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save game"})
		return
	}
	if h.onSaved != nil {
		h.onSaved(rec.Name)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	req, ok := decodeName(w, r)
	if !ok {
		return
	}

	rec, err := h.repo.Get(r.Context(), req.Name)
	if errors.Is(err, game.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "game not found"})
		return
	}
	if err != nil {
		slog.Error("load game failed", "error", err, "name", req.Name)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load game"})
		return
	}

	if err := room.Do(r.Context(), func(s *editor.Session) { s.ReplaceAll(rec.Objects) }); err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"objects": len(rec.Objects)})
}

// Snapshot renders the scene to PNG off the session goroutine.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}

	var objects []document.Object
	if err := room.View(r.Context(), func(s *editor.Session) { objects = s.Objects() }); err != nil {
		writeRoomError(w, err)
		return
	}

	surface := render.NewRasterSurface(h.width, h.height, h.textures)
	if err := render.NewAdapter(surface, h.textures).Sync(objects); err != nil {
		slog.Warn("snapshot sync", "error", err, "session", room.ID())
	}

	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		slog.Error("encode snapshot", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to render snapshot"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// Code downloads the generated script.
func (h *Handler) Code(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}

	var code string
	if err := room.View(r.Context(), func(s *editor.Session) { code = s.Code() }); err != nil {
		writeRoomError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="game.js"`)
	w.Write([]byte(code))
}

// Scene downloads the objects as a YAML scene file.
func (h *Handler) Scene(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}

	var objects []document.Object
	if err := room.View(r.Context(), func(s *editor.Session) { objects = s.Objects() }); err != nil {
		writeRoomError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := document.EncodeScene(&buf, objects); err != nil {
		slog.Error("encode scene", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to encode scene"})
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="scene.yaml"`)
	w.Write(buf.Bytes())
}

func (h *Handler) room(w http.ResponseWriter, r *http.Request) (*Room, bool) {
	room, err := h.hub.Get(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return nil, false
	}
	return room, true
}

func decodeName(w http.ResponseWriter, r *http.Request) (nameRequest, bool) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return req, false
	}
	return req, true
}

func writeRoomError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrRoomClosed) {
		writeJSON(w, http.StatusGone, map[string]string{"error": "session closed"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
