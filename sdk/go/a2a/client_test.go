package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestQuerySendsBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body queryRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		if body.Query != "news about Acme Inc" {
			t.Fatalf("unexpected query: %q", body.Query)
		}
		_, _ = w.Write([]byte(`[{"jsonrpc":"2.0","result":{"ok":true},"id":"t1"},{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method x not found"},"id":"t2"}]`))
	}))

	responses, err := client.Query(context.Background(), "news about Acme Inc")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if !responses[0].OK() || responses[1].OK() {
		t.Fatalf("unexpected outcomes: %+v", responses)
	}
	if responses[1].Error.Code != -32601 {
		t.Fatalf("unexpected error code: %d", responses[1].Error.Code)
	}
}

func TestQueryRPCRejection(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid Request: query must not be empty"},"id":""}`))
	}))

	_, err := client.Query(context.Background(), "")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.RPC == nil || apiErr.RPC.Code != -32600 {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestGetJobNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/jobs/job-404" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"job not found"}`))
	}))

	_, err := client.GetJob(context.Background(), "job-404")
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if apiErr := err.(*APIError); apiErr.Message != "job not found" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestWaitForJobPollsUntilDone(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := StatusRunning
		if calls >= 3 {
			status = StatusSucceeded
		}
		_ = json.NewEncoder(w).Encode(Job{ID: "job-1", Status: status})
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := client.WaitForJob(ctx, "job-1", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != StatusSucceeded || calls != 3 {
		t.Fatalf("unexpected result: status=%s calls=%d", job.Status, calls)
	}
}

func TestListJobsAndAgents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Fatalf("unexpected limit: %q", got)
		}
		_ = json.NewEncoder(w).Encode([]Job{{ID: "job-2"}, {ID: "job-1"}})
	})
	mux.HandleFunc("/api/v1/agents", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]Binding{{Skill: "get_crm_history", Agent: "crm-research-agent"}})
	})
	client := newTestClient(t, mux)

	jobs, err := client.ListJobs(context.Background(), 5)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "job-2" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}

	bindings, err := client.Agents(context.Background())
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	if len(bindings) != 1 || bindings[0].Agent != "crm-research-agent" {
		t.Fatalf("unexpected bindings: %+v", bindings)
	}
}
