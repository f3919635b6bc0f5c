package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/heapscope/pkg/cache"
	"github.com/matzehuels/heapscope/pkg/dump"
	"github.com/matzehuels/heapscope/pkg/errors"
	"github.com/matzehuels/heapscope/pkg/heap"
)

// snapshotSummary is the wire shape of one registry entry.
type snapshotSummary struct {
	ID            string    `json:"id"`
	Label         string    `json:"label,omitempty"`
	GraphHash     string    `json:"graph_hash"`
	TotalObjects  int       `json:"total_objects"`
	TotalShallow  uint64    `json:"total_shallow"`
	TotalRetained uint64    `json:"total_retained"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

func summarize(e *Entry) snapshotSummary {
	stats := e.Snapshot.HeapStatistics()
	return snapshotSummary{
		ID:            e.ID,
		Label:         e.Label,
		GraphHash:     e.GraphHash,
		TotalObjects:  stats.TotalObjects,
		TotalShallow:  stats.TotalShallow,
		TotalRetained: stats.TotalRetained,
		UploadedAt:    e.UploadedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"snapshots": s.registry.Len(),
	})
}

// handleUpload accepts a raw dump in the request body, indexes it, and
// registers the snapshot under a fresh ID. The parsed graph is cached
// by content hash, so re-uploading the same dump skips the parse.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, s.opts.MaxUploadBytes+1))
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read request body"))
		return
	}
	if int64(len(raw)) > s.opts.MaxUploadBytes {
		writeError(w, errors.New(errors.ErrCodeInvalidInput,
			"dump exceeds the %d byte upload limit", s.opts.MaxUploadBytes))
		return
	}
	if len(raw) == 0 {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "empty request body"))
		return
	}

	format := r.URL.Query().Get("format")
	g, counters, graphHash, err := s.loadGraph(r, raw, format)
	if err != nil {
		writeError(w, err)
		return
	}

	entry := &Entry{
		ID:         uuid.NewString(),
		Label:      r.URL.Query().Get("label"),
		GraphHash:  graphHash,
		Snapshot:   heap.NewSnapshot(g, counters),
		UploadedAt: time.Now().UTC(),
	}
	s.registry.Add(entry)

	s.logger.Info("snapshot uploaded",
		"id", entry.ID,
		"nodes", g.NumNodes(),
		"edges", g.NumEdges(),
	)
	writeJSON(w, http.StatusCreated, summarize(entry))
}

// loadGraph parses raw dump bytes, going through the graph cache the
// same way the local pipeline does.
func (s *Server) loadGraph(r *http.Request, raw []byte, format string) (*heap.Graph, map[string]float64, string, error) {
	key := s.keyer.GraphKey(cache.Hash(raw), cache.GraphKeyOpts{Format: format})

	if data, ok, err := s.cache.Get(r.Context(), key); err == nil && ok {
		if g, counters, err := dump.Unmarshal(data); err == nil {
			return g, counters, cache.Hash(data), nil
		}
	}

	g, counters, err := dump.Open(bytes.NewReader(raw), format)
	if err != nil {
		return nil, nil, "", err
	}

	canonical, err := dump.Marshal(g, counters)
	if err != nil {
		return nil, nil, "", errors.Wrap(errors.ErrCodeInternal, err, "failed to serialize graph")
	}
	_ = s.cache.Set(r.Context(), key, canonical, cache.TTLGraph)

	return g, counters, cache.Hash(canonical), nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries := s.registry.List()
	summaries := make([]snapshotSummary, len(entries))
	for i, e := range entries {
		summaries[i] = summarize(e)
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	e, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, snapshotNotFound(chi.URLParam(r, "id")))
		return
	}

	stats := e.Snapshot.HeapStatistics()
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":  summarize(e),
		"counters": stats.Counters,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.Remove(id) {
		writeError(w, snapshotNotFound(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// typeRecord is the wire shape of one per-type aggregate.
type typeRecord struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
	Shallow     uint64 `json:"shallow"`
	Retained    uint64 `json:"retained"`
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	e, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, snapshotNotFound(chi.URLParam(r, "id")))
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	stats := e.Snapshot.TypeStatistics(limit)
	records := make([]typeRecord, len(stats))
	for i, ts := range stats {
		records[i] = typeRecord{
			Name:        ts.Name,
			DisplayName: ts.DisplayName,
			Count:       ts.Count,
			Shallow:     ts.Shallow,
			Retained:    ts.Retained,
		}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	e, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, snapshotNotFound(chi.URLParam(r, "id")))
		return
	}

	nodeArg := chi.URLParam(r, "node")
	n, err := strconv.Atoi(nodeArg)
	if err != nil || n < 0 || n >= e.Snapshot.NumNodes() {
		writeError(w, errors.New(errors.ErrCodeInvalidNode, "invalid node handle %q", nodeArg))
		return
	}

	max, err := queryInt(r, "max", 0)
	if err != nil {
		writeError(w, err)
		return
	}

	node := heap.NodeID(n)
	writeJSON(w, http.StatusOK, map[string]any{
		"node":     n,
		"type":     e.Snapshot.DisplayName(node),
		"address":  fmt.Sprintf("0x%x", e.Snapshot.Graph().Address(node)),
		"retained": e.Snapshot.RetainedSize(node),
		"paths":    e.Snapshot.ReferencePaths(node, max),
	})
}

// typeDeltaRecord is the wire shape of one comparison delta.
type typeDeltaRecord struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Status        string `json:"status"`
	BaselineCount int    `json:"baseline_count"`
	CurrentCount  int    `json:"current_count"`
	CountDelta    int    `json:"count_delta"`
	ShallowDelta  int64  `json:"shallow_delta"`
	RetainedDelta int64  `json:"retained_delta"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	baseline, ok := s.registry.Get(chi.URLParam(r, "baseline"))
	if !ok {
		writeError(w, snapshotNotFound(chi.URLParam(r, "baseline")))
		return
	}
	current, ok := s.registry.Get(chi.URLParam(r, "current"))
	if !ok {
		writeError(w, snapshotNotFound(chi.URLParam(r, "current")))
		return
	}

	result := heap.Compare(baseline.Snapshot, current.Snapshot)
	deltas := make([]typeDeltaRecord, len(result.Types))
	for i, d := range result.Types {
		deltas[i] = typeDeltaRecord{
			Name:          d.Name,
			DisplayName:   d.DisplayName,
			Status:        string(d.Status),
			BaselineCount: d.BaselineCount,
			CurrentCount:  d.CurrentCount,
			CountDelta:    d.CountDelta,
			ShallowDelta:  d.ShallowDelta,
			RetainedDelta: d.RetainedDelta,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"object_count_delta": result.ObjectCountDelta,
		"shallow_delta":      result.ShallowDelta,
		"retained_delta":     result.RetainedDelta,
		"types":              deltas,
		"new_types":          result.NewTypes,
		"removed_types":      result.RemovedTypes,
	})
}

// =============================================================================
// Helpers
// =============================================================================

func snapshotNotFound(id string) error {
	return errors.New(errors.ErrCodeSnapshotNotFound, "no snapshot with id %q", id)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid %s parameter %q", name, raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the wire shape of every error.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorResponse{
		Code:    string(code),
		Message: errors.UserMessage(err),
	})
}

// statusFor maps error codes onto HTTP statuses. Unknown codes are
// internal errors.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound,
		errors.ErrCodeTypeNotFound, errors.ErrCodeSnapshotNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidDump,
		errors.ErrCodeInvalidNode, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeUnsupported, errors.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
