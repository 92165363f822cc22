package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/foundry/internal/metrics"
	"github.com/alfredjeanlab/foundry/internal/model"
)

// Banner is the plain-text body served at GET /.
const Banner = "API is running. Use /api/talents or /api/characters for data."

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// NewHTTPHandler returns an http.Handler with all routes registered and the
// middleware chain applied. corsOrigins lists the browser origins allowed to
// call the API.
func (s *FoundryServer) NewHTTPHandler(corsOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/resources", s.handleResources)
	mux.HandleFunc("GET /api/events/stream", s.handleEventStream)
	mux.Handle("GET /metrics", metrics.Handler())
	for _, res := range s.resources {
		s.registerResource(mux, res)
	}

	var h http.Handler = mux
	h = corsMiddleware(corsOrigins, h)
	h = metrics.Middleware()(h)
	h = accessLogMiddleware(h)
	h = requestIDMiddleware(h)
	h = recoveryMiddleware(h)
	return h
}

// registerResource mounts the record routes for res under its name and
// every alias.
func (s *FoundryServer) registerResource(mux *http.ServeMux, res model.Resource) {
	for _, p := range res.Paths() {
		base := "/api/" + p
		mux.HandleFunc("GET "+base, s.handleList(res))
		if res.ReadOnly {
			continue
		}
		mux.HandleFunc("POST "+base, s.handleCreate(res))
		mux.HandleFunc("GET "+base+"/{id}", s.handleGet(res))
		mux.HandleFunc("PUT "+base+"/{id}", s.handleReplace(res))
		mux.HandleFunc("PATCH "+base+"/{id}", s.handlePatch(res))
		mux.HandleFunc("DELETE "+base+"/{id}", s.handleDelete(res))
		for _, kind := range res.Children {
			mux.HandleFunc("POST "+base+"/{id}/"+kind.Name, s.handleAddChild(res, kind.Name))
		}
	}
}

// handleRoot handles GET /.
func (s *FoundryServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, Banner)
}

// handleHealth handles GET /api/health.
func (s *FoundryServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleResources handles GET /api/resources.
func (s *FoundryServer) handleResources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.resourceInfos())
}

func (s *FoundryServer) handleList(res model.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if res.Singleton {
			rec, err := s.firstRecord(r.Context(), res)
			if err != nil {
				s.writeFailure(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rec)
			return
		}
		recs, err := s.listRecords(r.Context(), res)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func (s *FoundryServer) handleGet(res model.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		rec, err := s.getRecord(r.Context(), res, id)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *FoundryServer) handleCreate(res model.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := readRecord(w, r)
		if !ok {
			return
		}
		rec, err := s.createRecord(r.Context(), res, body)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *FoundryServer) handleReplace(res model.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		body, ok := readRecord(w, r)
		if !ok {
			return
		}
		rec, err := s.replaceRecord(r.Context(), res, id, body)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *FoundryServer) handlePatch(res model.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rec, err := s.patchRecord(r.Context(), res, id, patch)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *FoundryServer) handleDelete(res model.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := s.deleteRecord(r.Context(), res, id); err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": res.DeletedMessage()})
	}
}

func (s *FoundryServer) handleAddChild(res model.Resource, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		body, ok := readRecord(w, r)
		if !ok {
			return
		}
		rec, err := s.addChild(r.Context(), res, kind, id, body)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

// pathID parses the {id} path value, writing a 400 when it is not a
// positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// readRecord decodes the request body as a JSON object, writing a 400 on
// failure.
func readRecord(w http.ResponseWriter, r *http.Request) (model.Record, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return model.Record{}, false
	}
	rec, err := model.ParseRecord(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return model.Record{}, false
	}
	return rec, true
}

// writeFailure maps an operation error onto a status code. Anything that is
// not a not-found or input error is logged and hidden behind a generic 500.
func (s *FoundryServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var nf notFoundError
	var ie inputError
	switch {
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
