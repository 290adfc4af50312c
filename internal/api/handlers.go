package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"jasondb/internal/collection"
	"jasondb/internal/database"
	"jasondb/internal/dberr"
	"jasondb/internal/document"
	"jasondb/internal/globalconst"
)

// Configure jsoniter for standard library compatibility.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes caps request bodies.
const maxBodyBytes = 50 * 1024 * 1024

// APIResponse defines the base structure for all JSON responses.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SendJSONResponse is a helper function to send any JSON response.
func SendJSONResponse(w http.ResponseWriter, success bool, message string, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	resp := APIResponse{
		Success: success,
		Message: message,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// Handlers groups the API handlers around one database.
type Handlers struct {
	DB *database.Database

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(db *database.Database) *Handlers {
	return &Handlers{DB: db, locks: make(map[string]*sync.Mutex)}
}

// Routes registers every endpoint on a new mux wrapped in request logging.
func (h *Handlers) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /collections", h.ListCollectionsHandler)
	mux.HandleFunc("POST /collections/{name}", h.LoadCollectionHandler)
	mux.HandleFunc("DELETE /collections/{name}", h.DeleteCollectionHandler)

	mux.HandleFunc("GET /collections/{name}/count", h.CountHandler)
	mux.HandleFunc("POST /collections/{name}/create", h.CreateHandler)
	mux.HandleFunc("POST /collections/{name}/find", h.FindHandler)
	mux.HandleFunc("POST /collections/{name}/update", h.UpdateHandler)
	mux.HandleFunc("POST /collections/{name}/delete", h.DeleteHandler)

	mux.HandleFunc("GET /collections/{name}/documents/{id}", h.FindByIDHandler)
	mux.HandleFunc("PATCH /collections/{name}/documents/{id}", h.UpdateByIDHandler)
	mux.HandleFunc("DELETE /collections/{name}/documents/{id}", h.DeleteByIDHandler)

	return LogRequest(mux)
}

// lockCollection serializes operations on one collection. Each collection
// is read and rewritten as a whole, so concurrent writers would lose updates.
func (h *Handlers) lockCollection(name string) func() {
	name = strings.TrimSuffix(name, globalconst.DBFileExtension)
	h.mu.Lock()
	l, ok := h.locks[name]
	if !ok {
		l = &sync.Mutex{}
		h.locks[name] = l
	}
	h.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// openCollection resolves the collection named in the path and locks it. It
// writes the error response itself and returns ok=false when the request
// cannot proceed.
func (h *Handlers) openCollection(w http.ResponseWriter, r *http.Request) (*collection.Collection, func(), bool) {
	if cancelled(w, r) {
		return nil, nil, false
	}
	name := r.PathValue("name")
	coll, ok := h.DB.Collection(name)
	if !ok {
		slog.Warn("Collection not found", "collection", name)
		SendJSONResponse(w, false, fmt.Sprintf("Collection '%s' not found", name), nil, http.StatusNotFound)
		return nil, nil, false
	}
	return coll, h.lockCollection(coll.Name()), true
}

// cancelled answers requests whose context is already done.
func cancelled(w http.ResponseWriter, r *http.Request) bool {
	select {
	case <-r.Context().Done():
		slog.Warn("Request cancelled or timed out", "path", r.URL.Path, "error", r.Context().Err())
		SendJSONResponse(w, false, "Request cancelled or timed out", nil, http.StatusServiceUnavailable)
		return true
	default:
		return false
	}
}

// ListCollectionsHandler handles GET /collections.
func (h *Handlers) ListCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	if cancelled(w, r) {
		return
	}
	names := h.DB.Names()
	if names == nil {
		names = []string{}
	}
	SendJSONResponse(w, true, "Collections retrieved successfully", names, http.StatusOK)
}

// LoadCollectionHandler handles POST /collections/{name}.
func (h *Handlers) LoadCollectionHandler(w http.ResponseWriter, r *http.Request) {
	if cancelled(w, r) {
		return
	}
	name := r.PathValue("name")
	unlock := h.lockCollection(name)
	defer unlock()

	if err := h.DB.Load(r.Context(), name); err != nil {
		sendError(w, fmt.Sprintf("Failed to load collection '%s'", name), err)
		return
	}
	SendJSONResponse(w, true, fmt.Sprintf("Collection '%s' loaded", name), nil, http.StatusCreated)
}

// DeleteCollectionHandler handles DELETE /collections/{name}.
func (h *Handlers) DeleteCollectionHandler(w http.ResponseWriter, r *http.Request) {
	if cancelled(w, r) {
		return
	}
	name := r.PathValue("name")
	unlock := h.lockCollection(name)
	defer unlock()

	docs, err := h.DB.DeleteCollection(r.Context(), name)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to delete collection '%s'", name), err)
		return
	}
	SendJSONResponse(w, true, fmt.Sprintf("Collection '%s' deleted", name), nonNil(docs), http.StatusOK)
}

// CountHandler handles GET /collections/{name}/count.
func (h *Handlers) CountHandler(w http.ResponseWriter, r *http.Request) {
	coll, unlock, ok := h.openCollection(w, r)
	if !ok {
		return
	}
	defer unlock()

	n, err := coll.Count(r.Context())
	if err != nil {
		sendError(w, "Failed to count documents", err)
		return
	}
	SendJSONResponse(w, true, "Documents counted", n, http.StatusOK)
}

// CreateHandler handles POST /collections/{name}/create. The body is a
// document or an array of documents.
func (h *Handlers) CreateHandler(w http.ResponseWriter, r *http.Request) {
	coll, unlock, ok := h.openCollection(w, r)
	if !ok {
		return
	}
	defer unlock()

	data, ok := readBody(w, r)
	if !ok {
		return
	}
	docs, err := coll.Create(r.Context(), data)
	if err != nil {
		sendError(w, "Failed to create documents", err)
		return
	}
	SendJSONResponse(w, true, fmt.Sprintf("Documents created in collection '%s'", coll.Name()), nonNil(docs), http.StatusCreated)
}

// FindHandler handles POST /collections/{name}/find with a {filter, many}
// body.
func (h *Handlers) FindHandler(w http.ResponseWriter, r *http.Request) {
	coll, unlock, ok := h.openCollection(w, r)
	if !ok {
		return
	}
	defer unlock()

	q, ok := readQuery(w, r)
	if !ok {
		return
	}
	docs, err := coll.Find(r.Context(), q.Filter, q.Many)
	if err != nil {
		sendError(w, "Failed to find documents", err)
		return
	}
	SendJSONResponse(w, true, fmt.Sprintf("%d document(s) found", len(docs)), nonNil(docs), http.StatusOK)
}

// UpdateHandler handles POST /collections/{name}/update with a
// {filter, data, many} body.
func (h *Handlers) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	coll, unlock, ok := h.openCollection(w, r)
	if !ok {
		return
	}
	defer unlock()

	q, ok := readQuery(w, r)
	if !ok {
		return
	}
	docs, err := coll.Update(r.Context(), q.Filter, q.Data, q.Many)
	if err != nil {
		sendError(w, "Failed to update documents", err)
		return
	}
	SendJSONResponse(w, true, fmt.Sprintf("%d document(s) updated", len(docs)), nonNil(docs), http.StatusOK)
}

// DeleteHandler handles POST /collections/{name}/delete with a
// {filter, many} body.
func (h *Handlers) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	coll, unlock, ok := h.openCollection(w, r)
	if !ok {
		return
	}
	defer unlock()

	q, ok := readQuery(w, r)
	if !ok {
		return
	}
	docs, err := coll.Delete(r.Context(), q.Filter, q.Many)
	if err != nil {
		sendError(w, "Failed to delete documents", err)
		return
	}
	SendJSONResponse(w, true, fmt.Sprintf("%d document(s) deleted", len(docs)), nonNil(docs), http.StatusOK)
}

// FindByIDHandler handles GET /collections/{name}/documents/{id}.
func (h *Handlers) FindByIDHandler(w http.ResponseWriter, r *http.Request) {
	coll, unlock, ok := h.openCollection(w, r)
	if !ok {
		return
	}
	defer unlock()

	id := r.PathValue("id")
	doc, err := coll.FindByID(r.Context(), document.StringValue(id))
	sendDocument(w, id, "retrieved", doc, err)
}

// UpdateByIDHandler handles PATCH /collections/{name}/documents/{id}. The
// body is the update payload.
func (h *Handlers) UpdateByIDHandler(w http.ResponseWriter, r *http.Request) {
	coll, unlock, ok := h.openCollection(w, r)
	if !ok {
		return
	}
	defer unlock()

	data, ok := readBody(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	doc, err := coll.UpdateByID(r.Context(), document.StringValue(id), data)
	sendDocument(w, id, "updated", doc, err)
}

// DeleteByIDHandler handles DELETE /collections/{name}/documents/{id}.
func (h *Handlers) DeleteByIDHandler(w http.ResponseWriter, r *http.Request) {
	coll, unlock, ok := h.openCollection(w, r)
	if !ok {
		return
	}
	defer unlock()

	id := r.PathValue("id")
	doc, err := coll.DeleteByID(r.Context(), document.StringValue(id))
	sendDocument(w, id, "deleted", doc, err)
}

func sendDocument(w http.ResponseWriter, id, verb string, doc *document.Map, err error) {
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to handle document '%s'", id), err)
		return
	}
	if doc == nil {
		SendJSONResponse(w, false, fmt.Sprintf("Document '%s' not found", id), nil, http.StatusNotFound)
		return
	}
	SendJSONResponse(w, true, fmt.Sprintf("Document '%s' %s", id, verb), doc, http.StatusOK)
}

// Query is the body of the find, update and delete endpoints.
type Query struct {
	Filter *document.Map
	Data   document.Value
	Many   bool
}

// ParseQuery decodes a query body. An empty body means "everything"; many
// defaults to true.
func ParseQuery(body []byte) (Query, error) {
	q := Query{Many: true}
	if len(body) == 0 {
		return q, nil
	}

	obj, err := document.ParseObject(body)
	if err != nil {
		return q, err
	}

	switch f := obj.Get("filter"); f.Kind() {
	case document.Undefined, document.Null:
	case document.Object:
		q.Filter = f.Map()
	default:
		return q, fmt.Errorf("'filter' must be an object, got %s", f.Kind())
	}

	switch m := obj.Get("many"); m.Kind() {
	case document.Undefined, document.Null:
	case document.Bool:
		q.Many = m.Bool()
	default:
		return q, fmt.Errorf("'many' must be a boolean, got %s", m.Kind())
	}

	q.Data = obj.Get("data")
	return q, nil
}

func readQuery(w http.ResponseWriter, r *http.Request) (Query, bool) {
	body, ok := readRaw(w, r)
	if !ok {
		return Query{}, false
	}
	q, err := ParseQuery(body)
	if err != nil {
		slog.Warn("Bad request: invalid query body", "path", r.URL.Path, "error", err)
		SendJSONResponse(w, false, "Invalid query body: "+err.Error(), nil, http.StatusBadRequest)
		return Query{}, false
	}
	return q, true
}

func readBody(w http.ResponseWriter, r *http.Request) (document.Value, bool) {
	body, ok := readRaw(w, r)
	if !ok {
		return document.Value{}, false
	}
	v, err := document.Parse(body)
	if err != nil {
		slog.Warn("Bad request: invalid JSON body", "path", r.URL.Path, "error", err)
		SendJSONResponse(w, false, "Invalid JSON request body", nil, http.StatusBadRequest)
		return document.Value{}, false
	}
	return v, true
}

func readRaw(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Warn("Bad request: could not read body", "path", r.URL.Path, "error", err)
		SendJSONResponse(w, false, "Could not read request body", nil, http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// StatusFor maps store errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, dberr.ErrDataShape), errors.Is(err, dberr.ErrInvalidCollectionList):
		return http.StatusBadRequest
	case errors.Is(err, dberr.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, dberr.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func sendError(w http.ResponseWriter, message string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(message, "error", err)
	} else {
		slog.Warn(message, "error", err)
	}
	SendJSONResponse(w, false, err.Error(), nil, status)
}

func nonNil(docs []*document.Map) []*document.Map {
	if docs == nil {
		return []*document.Map{}
	}
	return docs
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LogRequest is a middleware for logging incoming HTTP requests.
func LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("Request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
