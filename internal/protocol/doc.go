// Package protocol defines the JSON-RPC 2.0 shaped envelopes exchanged between
// the supervisor and its agents, together with the reserved error codes.
package protocol
