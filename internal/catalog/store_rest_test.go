package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type restCall struct {
	Method string
	Query  map[string]string
	Prefer string
	Body   []byte
}

type fakePostgREST struct {
	t *testing.T

	mu    sync.Mutex
	calls []restCall

	// respond picks status and body for each request.
	respond func(r *http.Request) (int, string)
}

func newFakePostgREST(t *testing.T, respond func(r *http.Request) (int, string)) (*fakePostgREST, *RESTStore) {
	t.Helper()

	f := &fakePostgREST{t: t, respond: respond}
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)

	c := NewRESTStore(ts.URL+"/", "anon-key", time.Second)
	c.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return f, c
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != restProductsPath {
		f.t.Errorf("path=%s", r.URL.Path)
	}
	if r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer anon-key" {
		f.t.Errorf("missing key headers: %v", r.Header)
	}

	body, _ := io.ReadAll(r.Body)
	q := map[string]string{}
	for k, v := range r.URL.Query() {
		q[k] = v[0]
	}

	f.mu.Lock()
	f.calls = append(f.calls, restCall{Method: r.Method, Query: q, Prefer: r.Header.Get("Prefer"), Body: body})
	f.mu.Unlock()

	status, out := f.respond(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, out)
}

func (f *fakePostgREST) Calls() []restCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]restCall(nil), f.calls...)
}

func TestRESTStore_ListByName(t *testing.T) {
	f, c := newFakePostgREST(t, func(*http.Request) (int, string) {
		return http.StatusOK, `[
			{"id":"a","nombre":"A","descripcion":null,"modelos_compatibles":null,"imagen":null,"created_at":"2026-01-01T00:00:00Z"},
			{"id":"b","nombre":"B","descripcion":"d","modelos_compatibles":["m"],"imagen":["/1.jpg","/2.jpg"]}
		]`
	})

	got, err := c.ListByName(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Compatible == nil || got[0].Image.String() != "" {
		t.Fatalf("row a not normalized: %+v", got[0])
	}
	if !got[1].Image.IsMulti() {
		t.Fatalf("row b image=%v", got[1].Image)
	}

	calls := f.Calls()
	if calls[0].Method != http.MethodGet || calls[0].Query["order"] != "nombre.asc" || calls[0].Query["select"] != "*" {
		t.Fatalf("call=%+v", calls[0])
	}
}

func TestRESTStore_GetByID(t *testing.T) {
	f, c := newFakePostgREST(t, func(r *http.Request) (int, string) {
		if r.URL.Query().Get("id") == "eq.a" {
			return http.StatusOK, `[{"id":"a","nombre":"A"}]`
		}
		return http.StatusOK, `[]`
	})

	p, ok, err := c.GetByID(context.Background(), "a")
	if err != nil || !ok || p.Name != "A" {
		t.Fatalf("p=%+v ok=%v err=%v", p, ok, err)
	}

	_, ok, err = c.GetByID(context.Background(), "zz")
	if err != nil || ok {
		t.Fatalf("missing id: ok=%v err=%v", ok, err)
	}

	if got := f.Calls()[0].Query["limit"]; got != "1" {
		t.Fatalf("limit=%q", got)
	}
}

func TestRESTStore_ExistsByNameEscapesPattern(t *testing.T) {
	f, c := newFakePostgREST(t, func(*http.Request) (int, string) {
		return http.StatusOK, `[]`
	})

	ok, err := c.ExistsByName(context.Background(), "50%_off")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got := f.Calls()[0].Query["nombre"]; got != `ilike.50\%\_off` {
		t.Fatalf("nombre=%q", got)
	}
}

func TestRESTStore_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"conflict", http.StatusConflict, ErrDuplicate},
		{"unavailable", http.StatusServiceUnavailable, ErrUnavailable},
		{"gateway timeout", http.StatusGatewayTimeout, ErrUnavailable},
		{"server error", http.StatusInternalServerError, ErrBadStatus},
		{"unauthorized", http.StatusUnauthorized, ErrBadStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, c := newFakePostgREST(t, func(*http.Request) (int, string) {
				return tc.status, `{"message":"nope"}`
			})

			_, err := c.Insert(context.Background(), Product{ID: "a", Name: "A"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestRESTStore_TransportErrorIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewRESTStore(url, "k", 200*time.Millisecond)
	if _, err := c.ListByName(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v", err)
	}
}

func TestRESTStore_InsertSendsNormalizedRow(t *testing.T) {
	f, c := newFakePostgREST(t, func(*http.Request) (int, string) {
		return http.StatusCreated, `[{"id":"a","nombre":"A","descripcion":"","modelos_compatibles":[],"imagen":""}]`
	})

	got, err := c.Insert(context.Background(), Product{ID: "a", Name: "A"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got.ID != "a" {
		t.Fatalf("got=%+v", got)
	}

	call := f.Calls()[0]
	if call.Method != http.MethodPost || call.Prefer != "return=representation" {
		t.Fatalf("call=%+v", call)
	}
	var rows []map[string]any
	if err := json.Unmarshal(call.Body, &rows); err != nil || len(rows) != 1 {
		t.Fatalf("body=%s err=%v", call.Body, err)
	}
	if _, ok := rows[0]["modelos_compatibles"].([]any); !ok {
		t.Fatalf("modelos_compatibles sent as %T", rows[0]["modelos_compatibles"])
	}
}

func TestRESTStore_UpdateMissingRow(t *testing.T) {
	f, c := newFakePostgREST(t, func(*http.Request) (int, string) {
		return http.StatusOK, `[]`
	})

	desc := "nueva"
	_, err := c.Update(context.Background(), "ghost", Patch{Description: &desc})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(f.Calls()[0].Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body["descripcion"] != "nueva" || body["updated_at"] == nil {
		t.Fatalf("body=%v", body)
	}
	if _, ok := body["nombre"]; ok {
		t.Fatalf("unset field sent: %v", body)
	}
}

func TestRESTStore_UpsertPreservesCreatedAt(t *testing.T) {
	f, c := newFakePostgREST(t, func(r *http.Request) (int, string) {
		if r.Method == http.MethodGet {
			return http.StatusOK, `[{"id":"a","created_at":"2025-06-01T00:00:00Z"}]`
		}
		return http.StatusNoContent, ``
	})

	at := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	inserted, err := c.Upsert(context.Background(), Product{ID: "a", Name: "A"}, at)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if inserted {
		t.Fatalf("existing row reported as inserted")
	}

	calls := f.Calls()
	if len(calls) != 2 || calls[1].Method != http.MethodPatch || calls[1].Query["id"] != "eq.a" {
		t.Fatalf("calls=%+v", calls)
	}
	var body map[string]any
	if err := json.Unmarshal(calls[1].Body, &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if _, ok := body["created_at"]; ok {
		t.Fatalf("created_at overwritten: %v", body)
	}
	if body["updated_at"] != "2026-05-05T00:00:00Z" {
		t.Fatalf("updated_at=%v", body["updated_at"])
	}
}

func TestRESTStore_UpsertInsertsNewRow(t *testing.T) {
	f, c := newFakePostgREST(t, func(r *http.Request) (int, string) {
		if r.Method == http.MethodGet {
			return http.StatusOK, `[]`
		}
		return http.StatusCreated, ``
	})

	at := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	inserted, err := c.Upsert(context.Background(), Product{ID: "n", Name: "Nuevo"}, at)
	if err != nil || !inserted {
		t.Fatalf("inserted=%v err=%v", inserted, err)
	}

	calls := f.Calls()
	if calls[1].Method != http.MethodPost {
		t.Fatalf("calls=%+v", calls)
	}
	var rows []map[string]any
	if err := json.Unmarshal(calls[1].Body, &rows); err != nil || len(rows) != 1 {
		t.Fatalf("body=%s err=%v", calls[1].Body, err)
	}
	if rows[0]["id"] != "n" || rows[0]["created_at"] != rows[0]["updated_at"] {
		t.Fatalf("row=%v", rows[0])
	}
}
