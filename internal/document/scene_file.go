package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type sceneFile struct {
	Objects []Object `yaml:"objects"`
}

// DecodeScene reads a YAML scene file. Objects keep their ids when present;
// the store assigns fresh ids to the rest.
func DecodeScene(r io.Reader) ([]Object, error) {
	var f sceneFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return []Object{}, nil
		}
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	objects := make([]Object, 0, len(f.Objects))
	for _, o := range f.Objects {
		if o.Kind == "" {
			return nil, fmt.Errorf("decode scene: object %q has no kind", o.Name)
		}
		objects = append(objects, o.Normalize())
	}
	return objects, nil
}

// EncodeScene writes objects as a YAML scene file.
func EncodeScene(w io.Writer, objects []Object) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sceneFile{Objects: objects}); err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
