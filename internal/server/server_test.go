package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campflow/campflow/internal/agents"
	"github.com/campflow/campflow/internal/coordinator"
	"github.com/campflow/campflow/internal/history"
	"github.com/campflow/campflow/pkg/api"
)

func scriptedPort() *agents.ScriptedPort {
	return agents.NewScriptedPort().
		Respond(api.RolePlanner, "the plan").
		Respond(api.RoleWriter, "the draft").
		Respond(api.RoleReviewer, `{"approved": true, "feedback": "", "risk_notes": ""}`).
		Respond(api.RolePublisher, "# Launch package\n\nFinal copy.")
}

// newTestServer builds a real coordinator behind the HTTP surface. The
// collector mirrors the live event stream so tests can wait on phases.
func newTestServer(t *testing.T, port api.AgentPort) (*httptest.Server, *api.CollectorSink) {
	t.Helper()

	collector := api.NewCollectorSink()
	events := api.NewChannelSink(64)
	sink := api.SinkFunc(func(ev api.Event) {
		collector.Emit(ev)
		events.Emit(ev)
	})

	hist := history.NewMemoryStore()
	coord, err := coordinator.New(coordinator.Config{Port: port, Sink: sink, History: hist})
	require.NoError(t, err)

	srv, err := New(Config{
		Coordinator:      coord,
		History:          hist,
		Events:           events,
		DefaultLoopLimit: 2,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, collector
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, scriptedPort())
	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWorkflowLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ts, collector := newTestServer(t, scriptedPort())

	resp := postJSON(t, ts.URL+"/api/workflow", map[string]any{"brief": "launch orbit"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	started := decodeBody[map[string]string](t, resp)
	require.NotEmpty(t, started["run_id"])

	_, err := collector.WaitFor(ctx, api.KindNeedsApproval)
	require.NoError(t, err)

	resp, err = http.Get(ts.URL + "/api/workflow")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeBody[api.RunStatus](t, resp)
	require.Equal(t, api.PhaseAwaitingApproval, status.Phase)
	require.Equal(t, started["run_id"], status.ID)

	resp = postJSON(t, ts.URL+"/api/workflow/approve", map[string]any{"approved": true, "note": "ship"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	_, err = collector.WaitFor(ctx, api.KindPublished)
	require.NoError(t, err)

	resp, err = http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decodeBody[api.PublishedHistoryPayload](t, resp)
	require.Len(t, listing.Items, 1)
	pkg := listing.Items[0]
	require.Contains(t, pkg.Content, "Launch package")

	resp, err = http.Get(fmt.Sprintf("%s/api/history/%s", ts.URL, pkg.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[api.PublishedPackage](t, resp)
	require.Equal(t, pkg.ID, got.ID)

	resp, err = http.Get(fmt.Sprintf("%s/api/history/%s/html", ts.URL, pkg.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	var html strings.Builder
	_, err = io.Copy(&html, resp.Body)
	require.NoError(t, err)
	require.Contains(t, html.String(), "<h1")
}

func TestStartRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, scriptedPort())

	resp := postJSON(t, ts.URL+"/api/workflow", map[string]any{"brief": ""})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartConflictWhileRunActive(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ts, collector := newTestServer(t, scriptedPort())

	resp := postJSON(t, ts.URL+"/api/workflow", map[string]any{"brief": "launch"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	_, err := collector.WaitFor(ctx, api.KindNeedsApproval)
	require.NoError(t, err)

	resp = postJSON(t, ts.URL+"/api/workflow", map[string]any{"brief": "another"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTriggerStatusMapping(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ts, collector := newTestServer(t, scriptedPort())

	// No run at all.
	resp := postJSON(t, ts.URL+"/api/workflow/feedback", map[string]any{"message": "hi"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/workflow")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Feedback while parked at the approval gate is a phase mismatch.
	resp = postJSON(t, ts.URL+"/api/workflow", map[string]any{"brief": "launch"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	_, err = collector.WaitFor(ctx, api.KindNeedsApproval)
	require.NoError(t, err)

	resp = postJSON(t, ts.URL+"/api/workflow/feedback", map[string]any{"message": "hi"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Cancel resolves the run.
	resp = postJSON(t, ts.URL+"/api/workflow/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHistoryNotFound(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t, scriptedPort())

	resp, err := http.Get(ts.URL + "/api/history/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventStreamGreetsAndReplaysHistory(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ts, _ := newTestServer(t, scriptedPort())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	// The first two frames are connection-scoped: greeting, then history.
	scanner := bufio.NewScanner(resp.Body)
	var frames []api.Event
	for scanner.Scan() && len(frames) < 2 {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev api.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		frames = append(frames, ev)
	}
	require.Len(t, frames, 2)
	require.Equal(t, api.KindSystem, frames[0].Kind)
	require.Equal(t, api.KindPublishedHistory, frames[1].Kind)
}
