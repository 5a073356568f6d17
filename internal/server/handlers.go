package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"audiencelens/internal/core"
	"audiencelens/internal/sources"
)

// Post sources accepted in a cluster request
const (
	SourceInline   = "inline"
	SourceDatabase = "database"
)

// ClusterRequestBody is the POST /api/clusters payload
type ClusterRequestBody struct {
	core.ClusterRequest
	Posts  []sources.WirePost `json:"posts"`
	Source string             `json:"source"` // inline (default) or database
	RunID  string             `json:"runId"`  // Database filter
	Limit  int                `json:"limit"`  // Database row cap, 0 for all
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind,omitempty"`
	MinRequired int    `json:"min_required,omitempty"`
}

// HealthResponse is the /health body
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse is the /api/status body
type StatusResponse struct {
	Version        string              `json:"version"`
	Uptime         string              `json:"uptime"`
	DatabaseSource bool                `json:"databaseSource"`
	Algorithms     []core.Algorithm    `json:"algorithms"`
	FeatureGroups  []core.FeatureGroup `json:"featureGroups"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

// handleCreateClusters handles POST /api/clusters
func (s *Server) handleCreateClusters(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	var body ClusterRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: "request body too large",
				Kind:  string(core.KindInvalidRequest),
			})
			return
		}
		s.respondError(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid JSON body: " + err.Error(),
			Kind:  string(core.KindInvalidRequest),
		})
		return
	}

	posts, err := s.loadPosts(r.Context(), body)
	if err != nil {
		s.respondAnalysisError(w, err)
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), body.ClusterRequest, posts)
	if err != nil {
		s.respondAnalysisError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// loadPosts resolves the posts of a request from the inline payload or the database
func (s *Server) loadPosts(ctx context.Context, body ClusterRequestBody) ([]core.Post, error) {
	switch body.Source {
	case "", SourceInline:
		return s.normalizer.Normalize(body.Posts)

	case SourceDatabase:
		if s.source == nil {
			return nil, core.NewError(core.KindInvalidRequest, "no database source is configured")
		}
		if len(body.Posts) > 0 {
			return nil, core.NewError(core.KindInvalidRequest, "inline posts are not accepted with source %q", SourceDatabase)
		}
		return s.source.Posts(ctx, sources.PostQuery{
			Platform: body.Platform,
			Query:    body.Query,
			RunID:    body.RunID,
			Limit:    body.Limit,
		})

	default:
		return nil, core.NewError(core.KindInvalidRequest, "unknown source %q", body.Source)
	}
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"analyzer": "ok"}

	if p, ok := s.source.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.log.Warn("Database health check failed", "error", err)
			checks["database"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Checks: checks,
			})
			return
		}
		checks["database"] = "ok"
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles the /api/status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{
		Version:        s.version,
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		DatabaseSource: s.source != nil,
		Algorithms: []core.Algorithm{
			core.AlgorithmKMeans, core.AlgorithmSpectral,
			core.AlgorithmHierarchical, core.AlgorithmDBSCAN, core.AlgorithmGaussian,
		},
		FeatureGroups: core.AllFeatureGroups,
	})
}

// statusFor maps an analysis error to its HTTP status
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindInvalidRequest, core.KindInvalidClusterCount:
		return http.StatusBadRequest
	case core.KindInsufficientData:
		return http.StatusUnprocessableEntity
	case core.KindCanceled:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) respondAnalysisError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := ErrorResponse{Error: err.Error(), Kind: string(core.KindOf(err))}

	var analysisErr *core.AnalysisError
	if errors.As(err, &analysisErr) {
		body.MinRequired = analysisErr.MinRequired
	}
	if status == http.StatusInternalServerError {
		s.log.Error("Cluster request failed", "error", err)
		body.Error = "internal error"
	}

	s.respondError(w, status, body)
}

func (s *Server) respondError(w http.ResponseWriter, status int, body ErrorResponse) {
	s.respondJSON(w, status, body)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}
