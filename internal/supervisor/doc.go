// Package supervisor implements the dispatch engine: it parses a query into
// tasks, resolves each task's agent through the registry, invokes it under a
// per-attempt time budget with one retry on timeout, and returns one response
// per task in input order.
package supervisor
