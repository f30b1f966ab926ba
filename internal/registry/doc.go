// Package registry maps skill ids to the agent instances serving them. A
// Registry is built once from agent descriptors and a compile-time factory
// table and is read-only afterwards.
package registry
