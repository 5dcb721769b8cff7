package asset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/rfaga/storyteller/internal/document"
)

const maxUploadSize = 10 << 20 // 10MB

// Sink places a decoded image into an editing session.
type Sink interface {
	CompleteImport(ctx context.Context, sessionID string, desc Descriptor) (document.Object, error)
}

// UploadResponse is returned from the import endpoint.
type UploadResponse struct {
	ObjectID   string `json:"objectId"`
	TextureRef string `json:"textureRef"`
	URL        string `json:"url"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Name       string `json:"name"`
}

// Handler serves image import and asset retrieval endpoints.
type Handler struct {
	dir      string
	pipeline *Pipeline
	sink     Sink
}

// NewHandler creates a handler serving files from dir.
func NewHandler(dir string, pipeline *Pipeline, sink Sink) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir, pipeline: pipeline, sink: sink}
}

// Upload handles POST /api/sessions/{id}/import (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large (max 10MB)", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	desc, err := h.pipeline.Import(data)
	if errors.Is(err, ErrDecode) {
		http.Error(w, "invalid image: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("import image", "error", err, "session", sessionID)
		http.Error(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	obj, err := h.sink.CompleteImport(r.Context(), sessionID, desc)
	if err != nil {
		if rmErr := h.pipeline.Remove(desc.TextureRef); rmErr != nil {
			slog.Warn("cleanup asset", "error", rmErr)
		}
		slog.Error("complete import", "error", err, "session", sessionID)
		http.Error(w, "session unavailable", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		ObjectID:   obj.ID,
		TextureRef: desc.TextureRef,
		URL:        fmt.Sprintf("/assets/%s.png", desc.TextureRef),
		Width:      desc.Width,
		Height:     desc.Height,
		Name:       header.Filename,
	})
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Texture refs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
