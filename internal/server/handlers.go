package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/cluster"
	"github.com/plantrec/plantrec/internal/dataset"
	"github.com/plantrec/plantrec/internal/query"
	"github.com/plantrec/plantrec/internal/recommend"
)

// maxBodyBytes caps a recommend request body.
const maxBodyBytes = 64 << 10

// RecommendResponse is the body of a recommend response.
type RecommendResponse struct {
	RequestID       string             `json:"request_id"`
	Recommendations []dataset.Identity `json:"recommendations"`
	Cluster         *int               `json:"cluster,omitempty"`
	ClusterSize     int                `json:"cluster_size"`
	Seed            uint64             `json:"seed,omitempty"`
	Silhouette      float64            `json:"silhouette,omitempty"`
	Message         string             `json:"message,omitempty"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // HTTP response write errors are not recoverable
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, ErrorResponse{RequestID: RequestID(r.Context()), Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rows":   s.pipeline.Rows(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields": s.pipeline.Catalog().Fields(),
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	prefs := query.Preferences{Count: query.DefaultCount}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&prefs); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.pipeline.Run(r.Context(), prefs)
	if err != nil {
		s.respondPipelineError(w, r, err)
		return
	}

	label := res.Cluster
	writeJSON(w, http.StatusOK, RecommendResponse{
		RequestID:       RequestID(r.Context()),
		Recommendations: res.Recommendations,
		Cluster:         &label,
		ClusterSize:     res.ClusterSize,
		Seed:            res.Seed,
		Silhouette:      res.Silhouette,
	})
}

// respondPipelineError maps the pipeline error taxonomy onto HTTP statuses.
// An empty cluster is not a failure: it returns 200 with no recommendations.
func (s *Server) respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	id := RequestID(r.Context())
	msg := recommend.UserMessage(err)

	var status int
	switch {
	case errors.Is(err, recommend.ErrEmptyCluster):
		writeJSON(w, http.StatusOK, RecommendResponse{
			RequestID:       id,
			Recommendations: []dataset.Identity{},
			Message:         msg,
		})
		return
	case errors.Is(err, catalog.ErrInvalidFieldValue):
		status = http.StatusBadRequest
	case errors.Is(err, cluster.ErrInsufficientData), errors.Is(err, catalog.ErrSchemaMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
	}

	s.logger.Warn().Err(err).Str("request_id", id).Int("status", status).Msg("recommendation failed")
	writeError(w, r, status, msg)
}
