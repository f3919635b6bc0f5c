package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineDump = `{
  "objects": [
    {"id": 1, "type": "MyApp.Cache", "size": 64, "refs": [2, 3]},
    {"id": 2, "type": "System.String", "size": 24},
    {"id": 3, "type": "System.String", "size": 32}
  ],
  "roots": [1],
  "counters": {"gc.collections": 3}
}`

const grownDump = `{
  "objects": [
    {"id": 1, "type": "MyApp.Cache", "size": 64, "refs": [2, 3, 4]},
    {"id": 2, "type": "System.String", "size": 24},
    {"id": 3, "type": "System.String", "size": 32},
    {"id": 4, "type": "System.String", "size": 40}
  ],
  "roots": [1],
  "counters": {"gc.collections": 5}
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(Options{MaxSnapshots: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, ts *httptest.Server, dump string) snapshotSummary {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/snapshots", "application/json", strings.NewReader(dump))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var summary snapshotSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	require.NotEmpty(t, summary.ID)
	return summary
}

func getJSON(t *testing.T, ts *httptest.Server, path string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]any
	resp := getJSON(t, ts, "/api/v1/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestUploadAndStatistics(t *testing.T) {
	ts := newTestServer(t)

	summary := upload(t, ts, baselineDump)
	assert.Equal(t, 3, summary.TotalObjects)
	assert.Equal(t, uint64(120), summary.TotalShallow)
	assert.NotEmpty(t, summary.GraphHash)

	var stats struct {
		Summary  snapshotSummary    `json:"summary"`
		Counters map[string]float64 `json:"counters"`
	}
	resp := getJSON(t, ts, "/api/v1/snapshots/"+summary.ID+"/", &stats)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, summary.ID, stats.Summary.ID)
	assert.Equal(t, float64(3), stats.Counters["gc.collections"])
}

func TestUploadEmptyBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/snapshots", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, "INVALID_INPUT", e.Code)
}

func TestUploadMalformedDump(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/snapshots", "application/json", strings.NewReader("not a dump"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusCreated, resp.StatusCode)
	assert.GreaterOrEqual(t, resp.StatusCode, 400)
}

func TestListSnapshots(t *testing.T) {
	ts := newTestServer(t)

	first := upload(t, ts, baselineDump)
	second := upload(t, ts, grownDump)

	var summaries []snapshotSummary
	resp := getJSON(t, ts, "/api/v1/snapshots/", &summaries)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, summaries, 2)

	ids := []string{summaries[0].ID, summaries[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestTypes(t *testing.T) {
	ts := newTestServer(t)
	summary := upload(t, ts, baselineDump)

	var records []typeRecord
	resp := getJSON(t, ts, "/api/v1/snapshots/"+summary.ID+"/types", &records)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, records, 2)

	// Sorted by retained descending: the cache retains everything.
	assert.Equal(t, "MyApp.Cache", records[0].Name)
	assert.Equal(t, uint64(120), records[0].Retained)
	assert.Equal(t, "System.String", records[1].Name)
	assert.Equal(t, 2, records[1].Count)

	var limited []typeRecord
	getJSON(t, ts, "/api/v1/snapshots/"+summary.ID+"/types?limit=1", &limited)
	assert.Len(t, limited, 1)
}

func TestPaths(t *testing.T) {
	ts := newTestServer(t)
	summary := upload(t, ts, baselineDump)

	var body struct {
		Node  int      `json:"node"`
		Paths []string `json:"paths"`
	}
	resp := getJSON(t, ts, "/api/v1/snapshots/"+summary.ID+"/paths/2", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, body.Node)
	require.NotEmpty(t, body.Paths)
	assert.Contains(t, body.Paths[0], "←")

	resp = getJSON(t, ts, "/api/v1/snapshots/"+summary.ID+"/paths/999", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompare(t *testing.T) {
	ts := newTestServer(t)
	baseline := upload(t, ts, baselineDump)
	current := upload(t, ts, grownDump)

	var body struct {
		ObjectCountDelta int               `json:"object_count_delta"`
		RetainedDelta    int64             `json:"retained_delta"`
		Types            []typeDeltaRecord `json:"types"`
	}
	resp := getJSON(t, ts, "/api/v1/compare/"+baseline.ID+"/"+current.ID, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, body.ObjectCountDelta)
	assert.Equal(t, int64(40), body.RetainedDelta)

	var stringDelta *typeDeltaRecord
	for i := range body.Types {
		if body.Types[i].Name == "System.String" {
			stringDelta = &body.Types[i]
		}
	}
	require.NotNil(t, stringDelta)
	assert.Equal(t, 1, stringDelta.CountDelta)
	assert.Equal(t, "Changed", stringDelta.Status)
}

func TestCompareUnknownSnapshot(t *testing.T) {
	ts := newTestServer(t)
	baseline := upload(t, ts, baselineDump)

	resp := getJSON(t, ts, "/api/v1/compare/"+baseline.ID+"/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDelete(t *testing.T) {
	ts := newTestServer(t)
	summary := upload(t, ts, baselineDump)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/snapshots/"+summary.ID+"/", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = getJSON(t, ts, "/api/v1/snapshots/"+summary.ID+"/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegistryEviction(t *testing.T) {
	srv, err := New(Options{MaxSnapshots: 2})
	require.NoError(t, err)
	defer srv.Close()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	first := upload(t, ts, baselineDump)
	upload(t, ts, grownDump)
	upload(t, ts, baselineDump)

	assert.Equal(t, 2, srv.registry.Len())
	_, ok := srv.registry.Get(first.ID)
	assert.False(t, ok, "oldest snapshot should have been evicted")
}
