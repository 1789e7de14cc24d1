package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/petrisync/pkg/errors"
)

// Document is the file form of a model: a name and an ordered list of
// entity field maps. Every entity map carries an "id" and a "type".
type Document struct {
	Name     string           `yaml:"name,omitempty" json:"name,omitempty"`
	Entities []map[string]any `yaml:"entities" json:"entities"`
}

// Format selects a document encoding.
type Format string

// Supported document encodings.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf infers the encoding from a file extension. Anything that is not
// .json is read as YAML, which is a superset of JSON.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile reads and parses a model document.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "model file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read model file %s", path)
	}
	return Parse(data, FormatOf(path))
}

// Parse decodes a model document.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s model", format)
	}
	for i, e := range doc.Entities {
		if Stringify(e["id"]) == "" {
			return nil, errors.New(errors.ErrCodeIncompleteEntity, "entity %d has no id", i)
		}
	}
	return &doc, nil
}

// Populate adds every entity of the document to s, in document order.
func (d *Document) Populate(s *Store) error {
	for _, e := range d.Entities {
		fields := make(map[string]any, len(e))
		for k, v := range e {
			if k != "id" {
				fields[k] = v
			}
		}
		if _, err := s.Add(Stringify(e["id"]), fields); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot captures the current contents of s as a document.
func Snapshot(name string, s *Store) *Document {
	doc := &Document{Name: name}
	for _, e := range s.Entries() {
		m := e.Fields()
		m["id"] = e.ID()
		doc.Entities = append(doc.Entities, m)
	}
	return doc
}

// Encode serializes the document.
func (d *Document) Encode(format Format) ([]byte, error) {
	if format == FormatJSON {
		return json.MarshalIndent(d, "", "  ")
	}
	return yaml.Marshal(d)
}

// WriteFile writes the document, choosing the encoding from the path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Encode(FormatOf(path))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode model")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "write model file %s", path)
	}
	return nil
}
