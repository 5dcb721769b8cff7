package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rfaga/storyteller/internal/document"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileStore keeps one JSON file per record in a directory.
type FileStore struct {
	dir string
	now func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) Dir() string { return s.dir }

// FileName maps a record name to its file name inside the store.
func FileName(name string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if base == "" {
		base = "game"
	}
	return base + ".json"
}

func (s *FileStore) Save(_ context.Context, rec Record) error {
	if err := Validate(rec); err != nil {
		return err
	}
	rec = normalize(rec)
	if rec.SavedAt.IsZero() {
		rec.SavedAt = s.now().UTC()
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create games dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}

	// Distinct names can sanitize to one file; only the same name may replace it.
	path := filepath.Join(s.dir, FileName(rec.Name))
	if existing, err := s.readFile(path); err == nil && existing.Name != rec.Name {
		return fmt.Errorf("%w: %q is stored as %q", ErrNameTaken, rec.Name, existing.Name)
	}

	// Write to a temp file first so readers never see a partial record.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write game: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write game: %w", err)
	}
	return nil
}

// List returns every readable record sorted by name. Files that fail to
// parse are logged and skipped.
func (s *FileStore) List(_ context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read games dir: %w", err)
	}

	records := []Record{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		rec, err := s.readFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			slog.Warn("skip game file", "file", e.Name(), "error", err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (s *FileStore) Get(_ context.Context, name string) (Record, error) {
	rec, err := s.readFile(filepath.Join(s.dir, FileName(name)))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err == nil && rec.Name != strings.TrimSpace(name) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// fileRecord accepts both the current layout and the legacy {name, code} one.
type fileRecord struct {
	Record
	Code string `json:"code,omitempty"`
}

func (s *FileStore) readFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return Record{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	rec := fr.Record
	if rec.Objects == nil && fr.Code != "" {
		rec = fromLegacy(rec.Name, fr.Code)
	}
	if rec.Objects == nil {
		rec.Objects = []document.Object{}
	}
	if strings.TrimSpace(rec.Name) == "" {
		return Record{}, fmt.Errorf("%s: %w: name is required", filepath.Base(path), ErrInvalidRecord)
	}
	return normalize(rec), nil
}

// legacyObject is the object layout of {name, code} files.
type legacyObject struct {
	ID     string        `json:"id"`
	Type   document.Kind `json:"type"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Sprite string        `json:"sprite"`
}

// fromLegacy converts a {name, code} file. Older files stored the object
// list as JSON in code; anything else is kept as generated code.
func fromLegacy(name, code string) Record {
	var legacy []legacyObject
	if err := json.Unmarshal([]byte(code), &legacy); err != nil {
		return Record{Name: name, Objects: []document.Object{}, GeneratedCode: code}
	}

	objs := make([]document.Object, len(legacy))
	for i, lo := range legacy {
		id := lo.ID
		if id == "" {
			id = fmt.Sprintf("legacy_%d", i+1)
		}
		kind := lo.Type
		if !kind.Valid() {
			kind = document.KindProp
		}
		objs[i] = document.Object{
			ID:         id,
			Kind:       kind,
			X:          lo.X,
			Y:          lo.Y,
			Width:      lo.Width,
			Height:     lo.Height,
			TextureRef: lo.Sprite,
		}
	}
	return Record{Name: name, Objects: objs}
}
