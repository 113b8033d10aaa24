// Package stubserver implements the person registry wire contract against an
// in-memory store. It exists so the client core can be run and exercised
// end to end without the real registry; behavior mirrors what the client
// assumes of the external collaborator, including server-side normalization.
package stubserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"anagrafe/internal/domain"
)

// Server serves the registry API over an in-memory store.
type Server struct {
	store *memoryStore
	log   *slog.Logger
}

// New constructs a stub registry server.
func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: newMemoryStore(), log: log}
}

// Seed preloads records, normalizing them the same way creates do.
func (s *Server) Seed(persons ...domain.Person) {
	for _, p := range persons {
		_ = s.store.save(normalize(p))
	}
}

// Router mounts the registry endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/person", s.handleCreate)
	r.Get("/person", s.handleList)
	r.Get("/person/search", s.handleSearch)
	r.Get("/person/{taxCode}", s.handleGet)
	r.Put("/person/{taxCode}", s.handleUpdate)
	r.Delete("/person/{taxCode}", s.handleDelete)
	return r
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var p domain.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed person payload")
		return
	}
	if !domain.IsValidTaxCode(p.TaxCode) {
		writeError(w, http.StatusBadRequest, "bad_request", "taxCode must be 16 alphanumeric characters")
		return
	}
	p = normalize(p)
	if err := s.store.save(p); err != nil {
		writeError(w, http.StatusConflict, "conflict", "taxCode already exists")
		return
	}
	s.log.Info("person created", "tax_code", p.TaxCode)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	code := pathTaxCode(r)
	p, err := s.store.find(code)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "no person with taxCode "+code)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.all())
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	code := pathTaxCode(r)
	var p domain.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed person payload")
		return
	}
	// The identity is the path's; a diverging body taxCode is ignored.
	p.TaxCode = code
	p = normalize(p)
	if err := s.store.replace(code, p); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "no person with taxCode "+code)
		return
	}
	s.log.Info("person updated", "tax_code", code)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	code := pathTaxCode(r)
	if err := s.store.delete(code); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "no person with taxCode "+code)
		return
	}
	s.log.Info("person deleted", "tax_code", code)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("name")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name query must not be empty")
		return
	}
	writeJSON(w, http.StatusOK, s.store.searchName(query))
}

func pathTaxCode(r *http.Request) string {
	raw := chi.URLParam(r, "taxCode")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return domain.NormalizeTaxCode(raw)
}

// normalize applies the server-side canonicalization the client must not
// assume but always reconciles against: trimmed uppercase identity and
// province, trimmed names.
func normalize(p domain.Person) domain.Person {
	p.TaxCode = domain.NormalizeTaxCode(p.TaxCode)
	p.Name = strings.TrimSpace(p.Name)
	p.Surname = strings.TrimSpace(p.Surname)
	p.Address.Province = domain.NormalizeProvince(p.Address.Province)
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}
