package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"
)

//go:embed schema.sql
var schemaSQL string

const productColumns = `id, nombre, descripcion, modelos_compatibles::text, imagen::text`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore connects with dsn, using key as the password.
func OpenPostgresStore(ctx context.Context, dsn, key string) (*PostgresStore, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.Password = key

	db := stdlib.OpenDB(*cfg)
	s := NewPostgresStore(db)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the products table when it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schemaSQL)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) ListByName(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+productColumns+`
			FROM products
			ORDER BY nombre ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 32)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		p, err = scanProduct(s.db.QueryRowContext(ctx, `
			SELECT `+productColumns+`
			FROM products
			WHERE id = $1
		`, id))
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("get product %q: %w", id, err)
	}
	return p, true, nil
}

func (s *PostgresStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	var one int

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT 1
			FROM products
			WHERE nombre ILIKE $1 ESCAPE '\'
			LIMIT 1
		`, escapeLike(name)).Scan(&one)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists by name: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p Product) (Product, error) {
	models, img, err := encodeJSONColumns(p)
	if err != nil {
		return Product{}, err
	}

	var out Product
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		out, err = scanProduct(s.db.QueryRowContext(ctx, `
			INSERT INTO products (id, nombre, descripcion, modelos_compatibles, imagen)
			VALUES ($1, $2, $3, $4::jsonb, $5::jsonb)
			RETURNING `+productColumns,
			p.ID, p.Name, p.Description, models, img))
		return err
	})

	if isUniqueViolation(err) {
		return Product{}, fmt.Errorf("insert %q: %w", p.ID, ErrDuplicate)
	}
	if err != nil {
		return Product{}, fmt.Errorf("insert %q: %w", p.ID, err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	var name, desc, models, img any
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Description != nil {
		desc = *patch.Description
	}
	if patch.Compatible != nil {
		b, err := json.Marshal(nonNilStrings(*patch.Compatible))
		if err != nil {
			return Product{}, err
		}
		models = string(b)
	}
	if patch.Image != nil {
		b, err := patch.Image.MarshalJSON()
		if err != nil {
			return Product{}, err
		}
		img = string(b)
	}

	var out Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		out, err = scanProduct(s.db.QueryRowContext(ctx, `
			UPDATE products SET
				nombre = COALESCE($2::text, nombre),
				descripcion = COALESCE($3::text, descripcion),
				modelos_compatibles = COALESCE($4::jsonb, modelos_compatibles),
				imagen = COALESCE($5::jsonb, imagen),
				updated_at = now()
			WHERE id = $1
			RETURNING `+productColumns,
			id, name, desc, models, img))
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Product{}, fmt.Errorf("update %q: %w", id, err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p Product, at time.Time) (bool, error) {
	models, img, err := encodeJSONColumns(p)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO products (id, nombre, descripcion, modelos_compatibles, imagen, created_at, updated_at)
			VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $6)
			ON CONFLICT (id) DO UPDATE SET
				nombre = EXCLUDED.nombre,
				descripcion = EXCLUDED.descripcion,
				modelos_compatibles = EXCLUDED.modelos_compatibles,
				imagen = EXCLUDED.imagen,
				created_at = COALESCE(products.created_at, EXCLUDED.created_at),
				updated_at = EXCLUDED.updated_at
			RETURNING (xmax = 0)
		`, p.ID, p.Name, p.Description, models, img, at.UTC()).Scan(&inserted)
	})
	if err != nil {
		return false, fmt.Errorf("upsert %q: %w", p.ID, err)
	}
	return inserted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p      Product
		models string
		img    string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &models, &img); err != nil {
		return Product{}, err
	}
	if err := json.Unmarshal([]byte(models), &p.Compatible); err != nil {
		return Product{}, fmt.Errorf("decode modelos_compatibles of %q: %w", p.ID, err)
	}
	if err := p.Image.UnmarshalJSON([]byte(img)); err != nil {
		return Product{}, fmt.Errorf("decode imagen of %q: %w", p.ID, err)
	}
	return p.normalized(), nil
}

func encodeJSONColumns(p Product) (models, img string, err error) {
	mb, err := json.Marshal(nonNilStrings(p.Compatible))
	if err != nil {
		return "", "", err
	}
	ib, err := p.Image.MarshalJSON()
	if err != nil {
		return "", "", err
	}
	return string(mb), string(ib), nil
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// escapeLike makes name match literally under ILIKE ... ESCAPE '\'.
func escapeLike(name string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(name)
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
