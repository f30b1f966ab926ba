package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"A2A-Supervisor/internal/job"
	"A2A-Supervisor/internal/metrics"
	"A2A-Supervisor/internal/protocol"
	"A2A-Supervisor/internal/registry"
)

type fakeQueries struct {
	lastQuery string
}

func (f *fakeQueries) HandleQuery(_ context.Context, text string) []protocol.TaskResponse {
	f.lastQuery = text
	return []protocol.TaskResponse{
		protocol.Success("t1", map[string]any{"company_name": "Acme Inc"}),
		protocol.Failure("t2", protocol.NewError(protocol.CodeMethodNotFound, "Method get_weather not found")),
	}
}

type fakeCatalog []registry.Binding

func (f fakeCatalog) Bindings() []registry.Binding { return f }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *fakeQueries) {
	t.Helper()
	queries := &fakeQueries{}
	base := []Option{WithLogger(quietLogger())}
	return NewServer(":0", queries, append(base, opts...)...), queries
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuerySuccess(t *testing.T) {
	server, queries := newTestServer(t)

	rec := do(t, server.Handler(), http.MethodPost, "/api/v1/query", `{"query":"news about Acme Inc"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	if queries.lastQuery != "news about Acme Inc" {
		t.Fatalf("unexpected query forwarded: %q", queries.lastQuery)
	}
	var got []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(got))
	}
	if got[0]["id"] != "t1" || got[1]["id"] != "t2" {
		t.Fatalf("unexpected order: %v", got)
	}
	if _, ok := got[1]["result"]; ok {
		t.Fatalf("failed response must not carry result: %v", got[1])
	}
}

func TestHandleQueryRejectsBadBodies(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	cases := []struct {
		name string
		body string
		code int
	}{
		{name: "malformed json", body: `{"query":`, code: protocol.CodeParseError},
		{name: "empty query", body: `{"query":"  "}`, code: protocol.CodeInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/api/v1/query", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			var resp struct {
				Error protocol.RPCError `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error.Code != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, resp.Error.Code)
			}
		})
	}
}

func TestHandleQueryMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)
	rec := do(t, server.Handler(), http.MethodGet, "/api/v1/query", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestJobsLifecycle(t *testing.T) {
	store := job.NewMemoryStore()
	queue := job.NewMemoryQueue(8)
	defer queue.Close()
	svc := job.NewService(store, queue, job.WithIDGenerator(func() string { return "job-1" }))
	server, _ := newTestServer(t, WithJobs(svc))
	handler := server.Handler()

	rec := do(t, handler, http.MethodPost, "/api/v1/jobs", `{"query":"crm history for John Doe"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusAccepted)
	}
	var created job.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID != "job-1" || created.Status != job.StatusPending {
		t.Fatalf("unexpected job: %+v", created)
	}

	rec = do(t, handler, http.MethodGet, "/api/v1/jobs/job-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}

	rec = do(t, handler, http.MethodGet, "/api/v1/jobs?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var listed []job.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 job, got %d", len(listed))
	}
}

func TestJobsErrors(t *testing.T) {
	svc := job.NewService(job.NewMemoryStore(), job.NewMemoryQueue(1))
	server, _ := newTestServer(t, WithJobs(svc))
	handler := server.Handler()

	t.Run("not found", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/v1/jobs/missing", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/v1/jobs?limit=-1", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		bare, _ := newTestServer(t)
		rec := do(t, bare.Handler(), http.MethodPost, "/api/v1/jobs", `{"query":"x"}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
	})
}

func TestAgentsHealthAndMetrics(t *testing.T) {
	collector := metrics.New()
	server, _ := newTestServer(t,
		WithCatalog(fakeCatalog{{Skill: "get_company_news", Slug: "web-research-agent"}}),
		WithMetrics(collector))
	handler := server.Handler()

	rec := do(t, handler, http.MethodGet, "/api/v1/agents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var bindings []registry.Binding
	if err := json.Unmarshal(rec.Body.Bytes(), &bindings); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(bindings) != 1 || bindings[0].Slug != "web-research-agent" {
		t.Fatalf("unexpected bindings: %+v", bindings)
	}

	rec = do(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, handler, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	want := `a2a_http_requests_total{handler="GET /api/v1/agents",method="GET",code="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("metrics missing %q:\n%s", want, rec.Body.String())
	}
}

func TestWithContextRejectsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handler := withContext(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := do(t, handler, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}
