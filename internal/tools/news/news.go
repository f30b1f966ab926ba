// Package news provides the data sources behind the web research agent.
package news

import (
	"context"
	"fmt"
	"time"

	"A2A-Supervisor/internal/protocol"
)

// Article is a single news item about a company.
type Article struct {
	Title string `json:"title" yaml:"title"`
	Date  string `json:"date" yaml:"date"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Report is the payload returned by a Source for one company.
type Report struct {
	CompanyName string    `json:"company_name"`
	Articles    []Article `json:"articles"`
}

// Source fetches recent articles for a company. Results are wrapped in a
// JSON-RPC shaped envelope, the same shape upstream research tools return.
type Source interface {
	Fetch(ctx context.Context, company string) (protocol.TaskResponse, error)
}

// MockSource fabricates two deterministic headlines per company.
type MockSource struct {
	// Latency simulates network time; the wait honours ctx cancellation.
	Latency time.Duration
}

const mockEnvelopeID = "mock-id"

// Fetch implements Source.
func (m MockSource) Fetch(ctx context.Context, company string) (protocol.TaskResponse, error) {
	if err := wait(ctx, m.Latency); err != nil {
		return protocol.TaskResponse{}, err
	}
	return protocol.Success(mockEnvelopeID, Report{
		CompanyName: company,
		Articles: []Article{
			{Title: fmt.Sprintf("%s announces new AI initiative", company), Date: "2025-06-01"},
			{Title: fmt.Sprintf("%s Q2 earnings exceed expectations", company), Date: "2025-06-03"},
		},
	}), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Source = MockSource{}
