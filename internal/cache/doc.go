// Package cache memoises successful task results for a bounded time. The
// dispatch engine treats every cache as best effort: a failing cache never
// changes a task's outcome.
package cache
