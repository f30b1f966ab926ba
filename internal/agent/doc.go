// Package agent defines the capability contract shared by every worker agent:
// a fixed method table invoked by name, with all domain failures translated
// into structured JSON-RPC errors at the agent boundary.
package agent
