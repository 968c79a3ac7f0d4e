// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the public-facing HTTP surface for the visibility
// service: a thin request/response adapter over the query engine. It never
// touches the store directly, only through query.Engine, so no request path
// can bypass mask/UUID validation.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"occlusion/internal/occlusion/query"
)

// Server handles the HTTP requests for the visibility service. It is
// configured with a query.Engine and nothing else.
type Server struct {
	engine *query.Engine
}

// NewServer creates and configures a new API server.
func NewServer(engine *query.Engine) *Server {
	return &Server{engine: engine}
}

// RegisterRoutes wires every public route onto r.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/check", s.handleCheck).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/check/batch", s.handleCheckBatch).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/v1/data/occlusion/visible", s.handleOPACheck).Methods(http.MethodPost)
	r.HandleFunc("/v1/data/occlusion/visible_batch", s.handleOPACheckBatch).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	decision, err := s.engine.Check(req.Object, req.VisibilityMask)
	if !handleQueryError(w, err) {
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{Visible: decision == query.Visible})
}

func (s *Server) handleCheckBatch(w http.ResponseWriter, r *http.Request) {
	var req checkBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	decisions, err := s.engine.CheckBatch(req.Objects, req.VisibilityMask)
	if !handleQueryError(w, err) {
		return
	}

	results := make([]checkBatchResultItem, len(req.Objects))
	for i, obj := range req.Objects {
		results[i] = checkBatchResultItem{Object: obj, Visible: decisions[i] == query.Visible}
	}
	writeJSON(w, http.StatusOK, checkBatchResponse{Results: results})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.engine.Stats()
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalEntries:  stats.TotalEntries,
		PerLevelCount: stats.PerLevelCount,
		LoadSource:    stats.LoadSource,
		LoadedAt:      stats.LoadedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleOPACheck(w http.ResponseWriter, r *http.Request) {
	var req opaCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	decision, err := s.engine.Check(req.Input.Object, req.Input.VisibilityMask)
	if !handleQueryError(w, err) {
		return
	}

	writeJSON(w, http.StatusOK, opaCheckResponse{Result: decision == query.Visible})
}

func (s *Server) handleOPACheckBatch(w http.ResponseWriter, r *http.Request) {
	var req opaCheckBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	decisions, err := s.engine.CheckBatch(req.Input.Objects, req.Input.VisibilityMask)
	if !handleQueryError(w, err) {
		return
	}

	result := make([]bool, len(decisions))
	for i, d := range decisions {
		result[i] = d == query.Visible
	}
	writeJSON(w, http.StatusOK, opaCheckBatchResponse{Result: result})
}

// decodeJSON decodes r's body into v, writing a 400 response and returning
// false on any malformed-body error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

// handleQueryError maps a query.Engine error to the right HTTP status.
// Returns false (having already written a response) when err is non-nil.
func handleQueryError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	var qerr *query.Error
	if errors.As(err, &qerr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: qerr.Kind.String()})
		return false
	}
	// ErrNotReady or any other unexpected failure is an invariant violation
	// at this point in the lifecycle: the server should not have started
	// accepting requests before the snapshot was published.
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
