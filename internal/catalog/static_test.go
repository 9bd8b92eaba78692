package catalog

import (
	"encoding/json"
	"testing"
)

func TestStatic_NormalizesMissingFields(t *testing.T) {
	s := NewStaticFromJSON([]byte(`[{"id":"a","nombre":"Filtro X"}]`))

	got := s.Load()
	if len(got) != 1 {
		t.Fatalf("len=%d", len(got))
	}

	want := Product{ID: "a", Name: "Filtro X", Description: "", Compatible: []string{}, Image: SingleImage("")}
	if !got[0].Equal(want) {
		t.Fatalf("got=%+v want=%+v", got[0], want)
	}
	if got[0].Compatible == nil {
		t.Fatalf("modelos_compatibles must be an empty list, not nil")
	}

	raw, err := json.Marshal(got[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	const wantJSON = `{"id":"a","nombre":"Filtro X","descripcion":"","modelos_compatibles":[],"imagen":""}`
	if string(raw) != wantJSON {
		t.Fatalf("json=%s want=%s", raw, wantJSON)
	}
}

func TestStatic_WrongTypesDegradeToDefaults(t *testing.T) {
	s := NewStaticFromJSON([]byte(`[
		{"id":"a","nombre":"A","modelos_compatibles":"universal","imagen":42},
		{"id":"b","nombre":"B","modelos_compatibles":null,"imagen":["/1.jpg","/2.jpg"]},
		{"nombre":"sin id"}
	]`))

	got := s.Load()
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if len(got[0].Compatible) != 0 || got[0].Compatible == nil {
		t.Fatalf("a compatible=%#v", got[0].Compatible)
	}
	if got[0].Image.IsMulti() || got[0].Image.String() != "" {
		t.Fatalf("a image=%v", got[0].Image)
	}
	if !got[1].Image.IsMulti() || len(got[1].Image.Paths()) != 2 {
		t.Fatalf("b image=%v", got[1].Image)
	}
}

func TestStatic_BadJSONYieldsEmptyList(t *testing.T) {
	got := NewStaticFromJSON([]byte(`{not json`)).Load()
	if got == nil || len(got) != 0 {
		t.Fatalf("got=%#v", got)
	}
}

func TestStatic_LoadsAreIndependent(t *testing.T) {
	s := NewStaticFromJSON([]byte(`[{"id":"a","nombre":"A","modelos_compatibles":["m1"]}]`))

	first := s.Load()
	first[0].Name = "mutated"
	first[0].Compatible[0] = "mutated"

	second := s.Load()
	if second[0].Name != "A" || second[0].Compatible[0] != "m1" {
		t.Fatalf("second load saw mutation: %+v", second[0])
	}
}

func TestStatic_EmbeddedBundle(t *testing.T) {
	got := NewStatic().Load()
	if len(got) == 0 {
		t.Fatalf("embedded bundle is empty")
	}

	seen := map[string]bool{}
	for _, p := range got {
		if p.ID == "" || p.Name == "" {
			t.Fatalf("bad record: %+v", p)
		}
		if seen[p.ID] {
			t.Fatalf("duplicate id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Compatible == nil {
			t.Fatalf("%s: nil modelos_compatibles", p.ID)
		}
		if !validID(p.ID) {
			t.Fatalf("%s: id is not path-safe", p.ID)
		}
	}
}
