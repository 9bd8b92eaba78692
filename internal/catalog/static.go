package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed data/products.json
var bundledProductsJSON []byte

// rawProduct mirrors one bundled record before normalization. Optional
// fields stay raw so a wrong type degrades to the default instead of
// failing the whole bundle.
type rawProduct struct {
	ID         string          `json:"id"`
	Name       string          `json:"nombre"`
	Desc       *string         `json:"descripcion"`
	Compatible json.RawMessage `json:"modelos_compatibles"`
	Image      json.RawMessage `json:"imagen"`
}

// Static serves the bundled snapshot. It keeps only the raw bytes, so each
// Load is an independent parse with no state carried between calls.
type Static struct {
	raw []byte
}

// NewStatic returns the loader for the embedded snapshot.
func NewStatic() Static { return Static{raw: bundledProductsJSON} }

// NewStaticFromJSON returns a loader over caller-supplied bytes.
func NewStaticFromJSON(raw []byte) Static {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Static{raw: cp}
}

// Load parses and normalizes the snapshot. Unparseable input yields an
// empty list.
func (s Static) Load() []Product {
	out, err := ParseProducts(s.raw)
	if err != nil {
		return []Product{}
	}
	return out
}

// ParseProducts decodes a JSON array of raw records into normalized
// products. Records without an id are skipped.
func ParseProducts(raw []byte) ([]Product, error) {
	var recs []rawProduct
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("parse products: %w", err)
	}

	out := make([]Product, 0, len(recs))
	for _, r := range recs {
		if r.ID == "" {
			continue
		}
		out = append(out, r.normalize())
	}
	return out, nil
}

func (r rawProduct) normalize() Product {
	p := Product{
		ID:         r.ID,
		Name:       r.Name,
		Compatible: []string{},
	}
	if r.Desc != nil {
		p.Description = *r.Desc
	}

	var models []string
	if len(r.Compatible) > 0 && json.Unmarshal(r.Compatible, &models) == nil && models != nil {
		p.Compatible = models
	}

	var img Image
	if len(r.Image) > 0 && img.UnmarshalJSON(r.Image) == nil {
		p.Image = img
	}
	return p
}

func findByID(list []Product, id string) (Product, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func containsName(list []Product, name string) bool {
	for _, p := range list {
		if equalFoldName(p.Name, name) {
			return true
		}
	}
	return false
}
