// Package api exposes the supervisor over HTTP: synchronous queries,
// asynchronous jobs, the registry listing, health and metrics.
package api
