// Package schemaio encodes and decodes table schema descriptors as TOML,
// the on-disk format for each table's .pbs file. A slice-of-structs shape
// (not a map) carries field and index declaration order, since TOML arrays
// of tables preserve their array order across an encode/decode round trip.
package schemaio

import (
	"io"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// FieldDescriptor is one column's on-disk declaration.
type FieldDescriptor struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// IndexDescriptor is one secondary index's on-disk declaration.
type IndexDescriptor struct {
	Name   string   `toml:"name"`
	Fields []string `toml:"fields"`
}

// TableDescriptor is the full on-disk shape of a table's .pbs file.
type TableDescriptor struct {
	Name    string            `toml:"name"`
	Fields  []FieldDescriptor `toml:"fields"`
	Indices []IndexDescriptor `toml:"indices"`
}

// Encode writes desc to w as TOML.
func Encode(w io.Writer, desc TableDescriptor) error {
	if err := toml.NewEncoder(w).Encode(desc); err != nil {
		return errors.Wrap(err, "schemaio: encoding table descriptor")
	}
	return nil
}

// Decode reads a TableDescriptor from r's TOML contents.
func Decode(r io.Reader) (TableDescriptor, error) {
	var desc TableDescriptor
	if _, err := toml.NewDecoder(r).Decode(&desc); err != nil {
		return TableDescriptor{}, errors.Wrap(err, "schemaio: decoding table descriptor")
	}
	return desc, nil
}
