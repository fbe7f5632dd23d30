// Package metadata is the client side of the metadata store: raw per-point
// naming metadata and the human-provided labels keyed by srcid.
package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/jkatofsky/plastering/internal/brick"
)

// Raw metadata keys as they appear in building dumps.
const (
	KeyVendorGivenName   = "VendorGivenName"
	KeyBACnetName        = "BACnetName"
	KeyBACnetDescription = "BACnetDescription"
	KeyBACnetUnit        = "BACnetUnit"
	KeyBACnetTypeStr     = "BACnetTypeStr"
	KeyBACnetType        = "BACnetType"
)

// SentenceKeys are the textual fields that are parsed character by character.
var SentenceKeys = []string{KeyVendorGivenName, KeyBACnetName, KeyBACnetDescription}

// RawMetadata is one ingested sensor point. It never changes after ingestion.
type RawMetadata struct {
	SrcID    string            `json:"srcid"`
	Building string            `json:"building"`
	Metadata map[string]string `json:"metadata"`
}

func (r RawMetadata) Field(key string) (string, bool) {
	v, ok := r.Metadata[key]
	return v, ok
}

// CharLabel is one character of a metadata string and its BIO tag,
// encoded on the wire as a two-element array.
type CharLabel struct {
	Char string
	Tag  string
}

func (c CharLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{c.Char, c.Tag})
}

func (c *CharLabel) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("char label: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("char label: expected 2 elements, got %d", len(pair))
	}
	c.Char, c.Tag = pair[0], pair[1]
	return nil
}

// LabeledMetadata is a label record. Labels are appended over a run and
// never deleted.
type LabeledMetadata struct {
	SrcID       string                 `json:"srcid"`
	Building    string                 `json:"building"`
	Tagsets     []string               `json:"tagsets"`
	PointTagset string                 `json:"point_tagset,omitempty"`
	FullParsing map[string][]CharLabel `json:"fullparsing,omitempty"`
}

// Point returns the distinguished point tagset, falling back to the first
// point tagset in Tagsets.
func (l LabeledMetadata) Point() string {
	if l.PointTagset != "" {
		return l.PointTagset
	}
	return brick.SelectPointTagset(l.Tagsets)
}

// BuildingStats summarizes one building in the store.
type BuildingStats struct {
	Building string
	Raw      int
	Labeled  int
}
