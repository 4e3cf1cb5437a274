package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/conclave/internal/history"
	"github.com/dusk-indust/conclave/internal/orchestrator"
)

// stubOrchestrator returns a canned result (or error) for every Analyze call.
type stubOrchestrator struct {
	result *orchestrator.Result
	err    error
	events chan orchestrator.ProgressEvent

	lastRequest orchestrator.Request
}

var _ orchestrator.Orchestrator = (*stubOrchestrator)(nil)

func (s *stubOrchestrator) Analyze(_ context.Context, req orchestrator.Request) (*orchestrator.Result, error) {
	s.lastRequest = req
	return s.result, s.err
}

func (s *stubOrchestrator) Progress() <-chan orchestrator.ProgressEvent {
	if s.events == nil {
		s.events = make(chan orchestrator.ProgressEvent)
	}
	return s.events
}

func newTestServer(t *testing.T, pipeline orchestrator.Orchestrator, store *history.Store) *httptest.Server {
	t.Helper()
	s := New(pipeline, store, zerolog.Nop())
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func postAnalyze(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/analyze", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestAnalyze_Success(t *testing.T) {
	stub := &stubOrchestrator{
		result: &orchestrator.Result{
			Results:       map[orchestrator.AgentID]string{"chatgpt": "42"},
			OptimalAnswer: "42",
		},
	}
	ts := newTestServer(t, stub, nil)

	resp := postAnalyze(t, ts, `{"prompt":"meaning of life","agents":["chatgpt"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got orchestrator.Result
	decodeBody(t, resp, &got)
	assert.Equal(t, "42", got.OptimalAnswer)
	assert.Equal(t, "42", got.Results["chatgpt"])

	assert.Equal(t, "meaning of life", stub.lastRequest.Prompt)
	assert.Equal(t, []orchestrator.AgentID{"chatgpt"}, stub.lastRequest.Agents)
}

func TestAnalyze_BusyMapsToConflict(t *testing.T) {
	stub := &stubOrchestrator{err: orchestrator.ErrBusy}
	ts := newTestServer(t, stub, nil)

	resp := postAnalyze(t, ts, `{"prompt":"p"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAnalyze_ValidationErrorsMapToBadRequest(t *testing.T) {
	for name, err := range map[string]error{
		"empty prompt": orchestrator.ErrEmptyPrompt,
		"no agents":    orchestrator.ErrNoAgents,
	} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, &stubOrchestrator{err: err}, nil)

			resp := postAnalyze(t, ts, `{"prompt":""}`)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAnalyze_MalformedBody(t *testing.T) {
	ts := newTestServer(t, &stubOrchestrator{}, nil)

	resp := postAnalyze(t, ts, `{"prompt": nope}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyze_ArchivesToStore(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "gw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	stub := &stubOrchestrator{
		result: &orchestrator.Result{
			Results:       map[orchestrator.AgentID]string{"claude": "blue"},
			OptimalAnswer: "blue",
		},
	}
	ts := newTestServer(t, stub, store)

	resp := postAnalyze(t, ts, `{"prompt":"favourite colour","agents":["claude"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	runs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "favourite colour", runs[0].Prompt)
}

func TestHistory_DisabledWithoutStore(t *testing.T) {
	ts := newTestServer(t, &stubOrchestrator{}, nil)

	resp, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHistory_GetByID(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "gw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	id, err := store.Save("q", &orchestrator.Result{OptimalAnswer: "a"})
	require.NoError(t, err)

	ts := newTestServer(t, &stubOrchestrator{}, store)

	resp, err := http.Get(ts.URL + "/api/history/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run history.Run
	decodeBody(t, resp, &run)
	assert.Equal(t, "q", run.Prompt)

	missing, err := http.Get(ts.URL + "/api/history/does-not-exist")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &stubOrchestrator{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}
