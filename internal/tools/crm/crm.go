// Package crm provides the contact history source used by the CRM research agent.
package crm

import (
	"context"
	"time"

	"A2A-Supervisor/internal/protocol"
)

// Interaction is one touchpoint with a contact.
type Interaction struct {
	Date string `json:"date"`
	Type string `json:"type"`
	Note string `json:"note"`
}

// History is the payload returned for a contact.
type History struct {
	ContactName  string        `json:"contact_name"`
	Interactions []Interaction `json:"interactions"`
}

// Source looks up the interaction history of a contact.
type Source interface {
	Fetch(ctx context.Context, contact string) (protocol.TaskResponse, error)
}

// MockSource returns a fixed two-step history for any contact.
type MockSource struct {
	Latency time.Duration
}

// Fetch implements Source.
func (m MockSource) Fetch(ctx context.Context, contact string) (protocol.TaskResponse, error) {
	if m.Latency > 0 {
		timer := time.NewTimer(m.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return protocol.TaskResponse{}, ctx.Err()
		case <-timer.C:
		}
	}
	return protocol.Success("mock-id", History{
		ContactName: contact,
		Interactions: []Interaction{
			{Date: "2025-05-20", Type: "email", Note: "Initial outreach"},
			{Date: "2025-05-25", Type: "call", Note: "Follow-up on proposal"},
		},
	}), nil
}

var _ Source = MockSource{}
