// Package job runs queries asynchronously: a Service records submitted jobs
// and publishes their ids on a queue, and a Processor with a fixed worker pool
// executes them through the supervisor. Job state lives in memory; the queue
// is either an in-process channel or a Redis list.
package job
