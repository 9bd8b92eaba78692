package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"PartsStore/internal/auth"
	"PartsStore/pkg/kit"
)

const (
	maxWriteBody = 1 << 20
	readyTimeout = 1 * time.Second

	headerSource = "X-Catalog-Source"
	headerCached = "X-Catalog-Cached"
)

type Server struct {
	Catalog *Service
	Log     *zap.Logger
	// Auth guards the write endpoints; nil leaves the catalog read-only.
	Auth *auth.Server
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Get("/products", s.list)
	r.Get("/products/exists", s.exists)
	r.Get("/products/{id}", s.get)

	if s.Auth != nil {
		r.Group(func(ar chi.Router) {
			ar.Use(auth.RequireRole(s.Auth.JWT, auth.RoleAdmin))
			ar.Post("/products", s.create)
			ar.Patch("/products/{id}", s.update)
			ar.Delete("/products/{id}", s.delete)
		})
	}

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Catalog.Ping(ctx); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	snap := s.Catalog.Snapshot(r.Context())

	w.Header().Set(headerSource, string(snap.Source))
	if snap.Cached {
		w.Header().Set(headerCached, "true")
	}
	kit.WriteJSON(w, http.StatusOK, snap.Products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.Catalog.ByID(r.Context(), id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) exists(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("nombre")
	if name == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "nombre required", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]bool{"exists": s.Catalog.ExistsByName(r.Context(), name)})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := kit.DecodeJSON(w, r, &p, maxWriteBody); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	created, err := s.Catalog.Create(r.Context(), p)
	if err != nil {
		s.writeWriteError(w, r, err, "create")
		return
	}
	kit.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch Patch
	if err := kit.DecodeJSON(w, r, &patch, maxWriteBody); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	updated, err := s.Catalog.Update(r.Context(), id, patch)
	if err != nil {
		s.writeWriteError(w, r, err, "update")
		return
	}
	kit.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Catalog.Delete(r.Context(), id); err != nil {
		s.writeWriteError(w, r, err, "delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeWriteError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, ErrRemoteUnconfigured):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog is read-only", nil)
		return
	case errors.Is(err, ErrInvalidProduct):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
		return
	case errors.Is(err, ErrDuplicate):
		kit.WriteError(w, r, http.StatusConflict, "product already exists", nil)
		return
	}

	if s.Log != nil {
		s.Log.Error("product write failed", zap.String("op", op), zap.Error(err))
	}
	switch {
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
	default:
		kit.WriteError(w, r, http.StatusBadGateway, "catalog error", nil)
	}
}
