// Package game persists named scenes together with their generated code.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rfaga/storyteller/internal/document"
)

var (
	ErrNotFound      = errors.New("game not found")
	ErrInvalidRecord = errors.New("invalid game record")
	// ErrNameTaken means another name already occupies the record's slot.
	ErrNameTaken     = errors.New("game name conflicts with an existing game")
)

// Record is one saved game.
type Record struct {
	Name          string            `json:"name"`
	Objects       []document.Object `json:"objects"`
	GeneratedCode string            `json:"generatedCode"`
	SavedAt       time.Time         `json:"savedAt"`
}

// Repository stores records by name. Saving an existing name replaces it.
type Repository interface {
	Save(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, name string) (Record, error)
}

// Validate checks the fields every record must carry.
func Validate(rec Record) error {
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if rec.Objects == nil {
		return fmt.Errorf("%w: objects are required", ErrInvalidRecord)
	}
	for i, obj := range rec.Objects {
		if !obj.Kind.Valid() {
			return fmt.Errorf("%w: object %d has kind %q", ErrInvalidRecord, i, obj.Kind)
		}
	}
	return nil
}

func normalize(rec Record) Record {
	rec.Name = strings.TrimSpace(rec.Name)
	objs := make([]document.Object, len(rec.Objects))
	for i, obj := range rec.Objects {
		objs[i] = obj.Normalize()
	}
	rec.Objects = objs
	return rec
}
