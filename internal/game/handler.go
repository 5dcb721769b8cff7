package game

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rfaga/storyteller/internal/codegen"
	"github.com/rfaga/storyteller/internal/document"
)

type Handler struct {
	repo     Repository
	onChange func()
}

// NewHandler serves repo. onChange, when set, runs after every successful save.
func NewHandler(repo Repository, onChange func()) *Handler {
	return &Handler{repo: repo, onChange: onChange}
}

type saveRequest struct {
	Name          string            `json:"name"`
	Objects       []document.Object `json:"objects"`
	GeneratedCode string            `json:"generatedCode"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("list games failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load games"})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.Get(r.Context(), mux.Vars(r)["name"])
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "game not found"})
		return
	}
	if err != nil {
		slog.Error("get game failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load game"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rec := Record{Name: req.Name, Objects: req.Objects, GeneratedCode: req.GeneratedCode}
	if err := Validate(rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if rec.GeneratedCode == "" {
		rec.GeneratedCode = codegen.Generate(rec.Objects)
	}

	if err := h.repo.Save(r.Context(), rec); err != nil {
		if errors.Is(err, ErrNameTaken) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("save game failed", "error", err, "name", rec.Name)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save game"})
		return
	}
	if h.onChange != nil {
		h.onChange()
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
