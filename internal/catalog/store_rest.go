package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultRESTTimeout = 3 * time.Second
	restProductsPath   = "/rest/v1/products"
	maxErrBody         = 512
)

// RESTStore talks to the catalog table through a PostgREST endpoint, the
// REST dialect of hosted Postgres.
type RESTStore struct {
	BaseURL string
	Key     string
	Client  *http.Client
	now     func() time.Time
}

func NewRESTStore(endpoint, key string, timeout time.Duration) *RESTStore {
	if timeout <= 0 {
		timeout = defaultRESTTimeout
	}
	return &RESTStore{
		BaseURL: strings.TrimRight(endpoint, "/"),
		Key:     key,
		Client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (c *RESTStore) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	return c.do(ctx, http.MethodGet, q, nil, nil, nil)
}

func (c *RESTStore) ListByName(ctx context.Context) ([]Product, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "nombre.asc")

	var rows []Product
	if err := c.do(ctx, http.MethodGet, q, nil, &rows, nil); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return normalizeAll(rows), nil
}

func (c *RESTStore) GetByID(ctx context.Context, id string) (Product, bool, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	var rows []Product
	if err := c.do(ctx, http.MethodGet, q, nil, &rows, nil); err != nil {
		return Product{}, false, fmt.Errorf("get product %q: %w", id, err)
	}
	if len(rows) == 0 {
		return Product{}, false, nil
	}
	return rows[0].normalized(), true, nil
}

func (c *RESTStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("nombre", "ilike."+escapeLike(name))
	q.Set("limit", "1")

	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, q, nil, &rows, nil); err != nil {
		return false, fmt.Errorf("exists by name: %w", err)
	}
	return len(rows) > 0, nil
}

func (c *RESTStore) Insert(ctx context.Context, p Product) (Product, error) {
	var rows []Product
	err := c.do(ctx, http.MethodPost, nil, []Product{p.normalized()}, &rows, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return Product{}, fmt.Errorf("insert %q: %w", p.ID, err)
	}
	if len(rows) == 0 {
		return p.normalized(), nil
	}
	return rows[0].normalized(), nil
}

func (c *RESTStore) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	body := patchBody(patch)
	body["updated_at"] = c.now().UTC()

	q := url.Values{}
	q.Set("id", "eq."+id)

	var rows []Product
	err := c.do(ctx, http.MethodPatch, q, body, &rows, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return Product{}, fmt.Errorf("update %q: %w", id, err)
	}
	if len(rows) == 0 {
		return Product{}, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	return rows[0].normalized(), nil
}

func (c *RESTStore) Delete(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	if err := c.do(ctx, http.MethodDelete, q, nil, nil, nil); err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	return nil
}

type restStamps struct {
	ID        string     `json:"id"`
	CreatedAt *time.Time `json:"created_at"`
}

func (c *RESTStore) Upsert(ctx context.Context, p Product, at time.Time) (bool, error) {
	q := url.Values{}
	q.Set("select", "id,created_at")
	q.Set("id", "eq."+p.ID)
	q.Set("limit", "1")

	var existing []restStamps
	if err := c.do(ctx, http.MethodGet, q, nil, &existing, nil); err != nil {
		return false, fmt.Errorf("upsert %q: %w", p.ID, err)
	}

	at = at.UTC()
	p = p.normalized()
	body := map[string]any{
		"nombre":              p.Name,
		"descripcion":         p.Description,
		"modelos_compatibles": p.Compatible,
		"imagen":              p.Image,
		"updated_at":          at,
	}

	if len(existing) > 0 {
		if existing[0].CreatedAt == nil {
			body["created_at"] = at
		}
		uq := url.Values{}
		uq.Set("id", "eq."+p.ID)
		if err := c.do(ctx, http.MethodPatch, uq, body, nil, nil); err != nil {
			return false, fmt.Errorf("upsert %q: %w", p.ID, err)
		}
		return false, nil
	}

	body["id"] = p.ID
	body["created_at"] = at
	if err := c.do(ctx, http.MethodPost, nil, []map[string]any{body}, nil, nil); err != nil {
		return false, fmt.Errorf("upsert %q: %w", p.ID, err)
	}
	return true, nil
}

func (c *RESTStore) do(ctx context.Context, method string, q url.Values, in, out any, headers map[string]string) error {
	u := c.BaseURL + restProductsPath
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.Key)
	req.Header.Set("Authorization", "Bearer "+c.Key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		_, _ = io.Copy(io.Discard, resp.Body)
		return statusError(resp.StatusCode, msg)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	switch {
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrDuplicate, detail)
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable, code == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status=%d", ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: status=%d body=%s", ErrBadStatus, code, detail)
	}
}

func patchBody(p Patch) map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["nombre"] = *p.Name
	}
	if p.Description != nil {
		m["descripcion"] = *p.Description
	}
	if p.Compatible != nil {
		m["modelos_compatibles"] = nonNilStrings(*p.Compatible)
	}
	if p.Image != nil {
		m["imagen"] = *p.Image
	}
	return m
}

func normalizeAll(in []Product) []Product {
	for i := range in {
		in[i] = in[i].normalized()
	}
	return in
}
