// Package mockapi is an in-memory admin API used by the CLI and transport
// tests. Payloads are validated with the same form specs the client uses.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/goliatone/go-entityform/pkg/formspec"
	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/validation"
)

// Resource mounts one entity. Path may contain {parent}; ParentField names
// the payload field holding that id.
type Resource struct {
	Entity      string
	Path        string
	ParentField string
	// Unique fields reject duplicates with a field error.
	Unique []string
}

// Option customises a Server.
type Option func(*Server)

// WithTranslator localises server-side validation messages.
func WithTranslator(t i18n.Func) Option {
	return func(s *Server) {
		s.t = t
	}
}

// WithRequestLog enables chi's request logger.
func WithRequestLog() Option {
	return func(s *Server) {
		s.logRequests = true
	}
}

// WithToken requires a bearer token on every request.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

type table struct {
	items map[string]model.Values
	order []string
}

// Server stores entities in memory. Safe for concurrent use.
type Server struct {
	mu          sync.RWMutex
	specs       *formspec.Set
	resources   []Resource
	tables      map[string]*table
	t           i18n.Func
	token       string
	logRequests bool
	now         func() time.Time
}

// New builds a server for resources.
func New(specs *formspec.Set, resources []Resource, options ...Option) *Server {
	s := &Server{
		specs:     specs,
		resources: resources,
		tables:    make(map[string]*table, len(resources)),
		now:       time.Now,
	}
	for _, r := range resources {
		s.tables[r.Entity] = &table{items: make(map[string]model.Values)}
	}
	for _, option := range options {
		if option != nil {
			option(s)
		}
	}
	return s
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.logRequests {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(s.authorize)

	for _, res := range s.resources {
		res := res
		pattern := strings.ReplaceAll(res.Path, "{parent}", "{parentID}")
		r.Route(pattern, func(r chi.Router) {
			r.Get("/", s.list(res))
			r.Post("/", s.create(res))
			r.Get("/{id}", s.get(res))
			r.Put("/{id}", s.update(res))
			r.Delete("/{id}", s.remove(res))
		})
	}
	return r
}

// Seed stores items as-is, assigning ids where missing, and returns the ids.
func (s *Server) Seed(entity string, items ...model.Values) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, ok := s.tables[entity]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		clone := cloneValues(item)
		id, _ := clone["id"].(string)
		if id == "" {
			id = uuid.NewString()
			clone["id"] = id
		}
		if _, exists := tbl.items[id]; !exists {
			tbl.order = append(tbl.order, id)
		}
		tbl.items[id] = clone
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of stored entities.
func (s *Server) Count(entity string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tbl, ok := s.tables[entity]; ok {
		return len(tbl.items)
	}
	return 0
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent := chi.URLParam(r, "parentID")
		search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

		s.mu.RLock()
		tbl := s.tables[res.Entity]
		out := make([]model.Values, 0, len(tbl.order))
		for _, id := range tbl.order {
			item := tbl.items[id]
			if res.ParentField != "" && fmt.Sprint(item[res.ParentField]) != parent {
				continue
			}
			if search != "" && !matches(item, search) {
				continue
			}
			out = append(out, s.public(res, item))
		}
		s.mu.RUnlock()

		writeJSON(w, http.StatusOK, map[string]any{"data": out, "total": len(out)})
	}
}

func (s *Server) get(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := s.lookup(res, chi.URLParam(r, "id"), chi.URLParam(r, "parentID"))
		if !ok {
			writeError(w, http.StatusNotFound, "Not found", nil)
			return
		}
		writeJSON(w, http.StatusOK, s.public(res, item))
	}
}

func (s *Server) create(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := decode(w, r)
		if !ok {
			return
		}
		if res.ParentField != "" {
			payload[res.ParentField] = chi.URLParam(r, "parentID")
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if errs := s.check(res, payload, "", formspec.ModeCreate); len(errs) > 0 {
			writeError(w, http.StatusUnprocessableEntity, "Validation failed", errs)
			return
		}
		tbl := s.tables[res.Entity]
		id := uuid.NewString()
		payload["id"] = id
		payload["createdAt"] = s.now().UTC().Format(time.RFC3339)
		tbl.items[id] = payload
		tbl.order = append(tbl.order, id)
		writeJSON(w, http.StatusCreated, s.public(res, payload))
	}
}

func (s *Server) update(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := decode(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")

		s.mu.Lock()
		defer s.mu.Unlock()
		existing, found := s.tables[res.Entity].items[id]
		if !found || !inParent(res, existing, chi.URLParam(r, "parentID")) {
			writeError(w, http.StatusNotFound, "Not found", nil)
			return
		}
		merged := cloneValues(existing)
		for k, v := range payload {
			merged[k] = v
		}
		merged["id"] = id
		if errs := s.check(res, merged, id, formspec.ModeEdit); len(errs) > 0 {
			writeError(w, http.StatusUnprocessableEntity, "Validation failed", errs)
			return
		}
		merged["updatedAt"] = s.now().UTC().Format(time.RFC3339)
		s.tables[res.Entity].items[id] = merged
		writeJSON(w, http.StatusOK, s.public(res, merged))
	}
}

func (s *Server) remove(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s.mu.Lock()
		defer s.mu.Unlock()
		tbl := s.tables[res.Entity]
		item, found := tbl.items[id]
		if !found || !inParent(res, item, chi.URLParam(r, "parentID")) {
			writeError(w, http.StatusNotFound, "Not found", nil)
			return
		}
		delete(tbl.items, id)
		for i, candidate := range tbl.order {
			if candidate == id {
				tbl.order = append(tbl.order[:i], tbl.order[i+1:]...)
				break
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) lookup(res Resource, id, parent string) (model.Values, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.tables[res.Entity].items[id]
	if !ok || !inParent(res, item, parent) {
		return nil, false
	}
	return cloneValues(item), true
}

// check validates payload against the entity spec and unique fields.
// Callers hold s.mu.
func (s *Server) check(res Resource, payload model.Values, selfID string, mode formspec.Mode) map[string][]string {
	errs := make(map[string][]string)
	if spec, ok := s.specs.Spec(res.Entity); ok {
		skip := make(map[string]struct{})
		for _, name := range spec.UIOnly() {
			skip[name] = struct{}{}
		}
		var fields []model.FieldDescriptor
		for _, f := range spec.Compile(s.t, mode) {
			if _, ui := skip[f.Name]; !ui {
				fields = append(fields, f)
			}
		}
		for name, msg := range validation.ValidateAll(fields, payload) {
			errs[name] = append(errs[name], msg)
		}
	}
	for _, field := range res.Unique {
		value := strings.ToLower(strings.TrimSpace(fmt.Sprint(payload[field])))
		if value == "" {
			continue
		}
		for id, item := range s.tables[res.Entity].items {
			if id != selfID && strings.ToLower(strings.TrimSpace(fmt.Sprint(item[field]))) == value {
				errs[field] = append(errs[field], "has already been taken")
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// public strips credentials and form-only fields from responses.
func (s *Server) public(res Resource, item model.Values) model.Values {
	out := cloneValues(item)
	if spec, ok := s.specs.Spec(res.Entity); ok {
		for _, name := range append(spec.Credentials(), spec.UIOnly()...) {
			delete(out, name)
		}
	}
	return out
}

func inParent(res Resource, item model.Values, parent string) bool {
	return res.ParentField == "" || fmt.Sprint(item[res.ParentField]) == parent
}

func matches(item model.Values, search string) bool {
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s, ok := item[k].(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

func decode(w http.ResponseWriter, r *http.Request) (model.Values, bool) {
	var payload model.Values
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return nil, false
	}
	if payload == nil {
		payload = model.Values{}
	}
	return payload, true
}

func cloneValues(src model.Values) model.Values {
	out := make(model.Values, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	body := map[string]any{"message": message}
	if len(fields) > 0 {
		body["errors"] = fields
	}
	writeJSON(w, status, body)
}
