package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Product is the canonical catalog record shared by the remote store and
// the bundled snapshot. ID is the join key between the two.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"nombre"`
	Description string   `json:"descripcion"`
	Compatible  []string `json:"modelos_compatibles"`
	Image       Image    `json:"imagen"`
}

// Image is either a single path or an ordered list of paths.
type Image struct {
	path  string
	paths []string
	multi bool
}

func SingleImage(path string) Image { return Image{path: path} }

func MultiImage(paths ...string) Image {
	out := make([]string, len(paths))
	copy(out, paths)
	return Image{paths: out, multi: true}
}

func (i Image) IsMulti() bool { return i.multi }

// Paths returns the list view: a single path becomes a one-element list,
// an empty single path becomes an empty list.
func (i Image) Paths() []string {
	if i.multi {
		out := make([]string, len(i.paths))
		copy(out, i.paths)
		return out
	}
	if i.path == "" {
		return []string{}
	}
	return []string{i.path}
}

func (i Image) String() string {
	if i.multi {
		return strings.Join(i.paths, ",")
	}
	return i.path
}

func (i Image) Equal(o Image) bool {
	if i.multi != o.multi {
		return false
	}
	if !i.multi {
		return i.path == o.path
	}
	if len(i.paths) != len(o.paths) {
		return false
	}
	for k := range i.paths {
		if i.paths[k] != o.paths[k] {
			return false
		}
	}
	return true
}

func (i Image) MarshalJSON() ([]byte, error) {
	if i.multi {
		if i.paths == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(i.paths)
	}
	return json.Marshal(i.path)
}

var errBadImage = errors.New("imagen must be a string or a list of strings")

func (i *Image) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*i = Image{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = SingleImage(s)
		return nil
	case b[0] == '[':
		var ss []string
		if err := json.Unmarshal(b, &ss); err != nil {
			return errBadImage
		}
		*i = MultiImage(ss...)
		return nil
	default:
		return errBadImage
	}
}

// Equal compares two products by value, treating nil and empty model
// lists as the same.
func (p Product) Equal(o Product) bool {
	if p.ID != o.ID || p.Name != o.Name || p.Description != o.Description {
		return false
	}
	if len(p.Compatible) != len(o.Compatible) {
		return false
	}
	for k := range p.Compatible {
		if p.Compatible[k] != o.Compatible[k] {
			return false
		}
	}
	return p.Image.Equal(o.Image)
}

// normalized fills the documented defaults for optional fields.
func (p Product) normalized() Product {
	if p.Compatible == nil {
		p.Compatible = []string{}
	}
	return p
}

// Patch is a partial update. Nil fields are left untouched; there is no
// way to change an identifier.
type Patch struct {
	Name        *string   `json:"nombre,omitempty"`
	Description *string   `json:"descripcion,omitempty"`
	Compatible  *[]string `json:"modelos_compatibles,omitempty"`
	Image       *Image    `json:"imagen,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Compatible == nil && p.Image == nil
}

// Apply returns p with the patch fields written over it.
func (p Patch) Apply(to Product) Product {
	if p.Name != nil {
		to.Name = *p.Name
	}
	if p.Description != nil {
		to.Description = *p.Description
	}
	if p.Compatible != nil {
		to.Compatible = append([]string{}, (*p.Compatible)...)
	}
	if p.Image != nil {
		to.Image = *p.Image
	}
	return to
}

func cloneProducts(in []Product) []Product {
	if in == nil {
		return nil
	}
	out := make([]Product, len(in))
	copy(out, in)
	return out
}
