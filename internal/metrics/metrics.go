// Package metrics keeps in-process counters and latency histograms for task
// dispatch and the HTTP API, rendered in the Prometheus text exposition
// format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var defaultBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type dispatchKey struct {
	method string
	code   string
}

type httpKey struct {
	handler string
	method  string
	code    string
}

type routeKey struct {
	handler string
	method  string
}

type histogram struct {
	counts []uint64
	sum    float64
	count  uint64
}

func (h *histogram) observe(buckets []float64, value float64) {
	h.count++
	h.sum += value
	for idx, bound := range buckets {
		if value <= bound {
			h.counts[idx]++
		}
	}
}

// Collector aggregates dispatch and HTTP observations. The zero value is not
// usable; construct with New.
type Collector struct {
	mu              sync.Mutex
	buckets         []float64
	dispatches      map[dispatchKey]uint64
	retries         map[string]uint64
	cacheHits       map[string]uint64
	dispatchLatency map[string]*histogram
	requests        map[httpKey]uint64
	requestLatency  map[routeKey]*histogram
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{
		buckets:         defaultBuckets,
		dispatches:      make(map[dispatchKey]uint64),
		retries:         make(map[string]uint64),
		cacheHits:       make(map[string]uint64),
		dispatchLatency: make(map[string]*histogram),
		requests:        make(map[httpKey]uint64),
		requestLatency:  make(map[routeKey]*histogram),
	}
}

// ObserveDispatch records one finished task. code is 0 for success,
// otherwise the JSON-RPC error code of the response.
func (c *Collector) ObserveDispatch(method string, code, attempts int, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dispatches[dispatchKey{method: method, code: strconv.Itoa(code)}]++
	if attempts > 1 {
		c.retries[method] += uint64(attempts - 1)
	}
	hist := c.dispatchLatency[method]
	if hist == nil {
		hist = c.newHistogram()
		c.dispatchLatency[method] = hist
	}
	hist.observe(c.buckets, duration.Seconds())
}

// ObserveCacheHit records a task answered from the result cache.
func (c *Collector) ObserveCacheHit(method string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.cacheHits[method]++
	c.mu.Unlock()
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func (c *Collector) ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests[httpKey{handler: handler, method: method, code: strconv.Itoa(status)}]++
	key := routeKey{handler: handler, method: method}
	hist := c.requestLatency[key]
	if hist == nil {
		hist = c.newHistogram()
		c.requestLatency[key] = hist
	}
	hist.observe(c.buckets, duration.Seconds())
}

// DispatchCount returns how many tasks for method finished with code.
func (c *Collector) DispatchCount(method string, code int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatches[dispatchKey{method: method, code: strconv.Itoa(code)}]
}

func (c *Collector) newHistogram() *histogram {
	return &histogram{counts: make([]uint64, len(c.buckets))}
}

// Handler exposes the metrics in Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, c.Render())
	})
}

// Render returns the current snapshot as exposition text.
func (c *Collector) Render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.Grow(2048)

	b.WriteString("# HELP a2a_dispatch_total Tasks finished by the dispatch engine.\n")
	b.WriteString("# TYPE a2a_dispatch_total counter\n")
	dispatchKeys := make([]dispatchKey, 0, len(c.dispatches))
	for key := range c.dispatches {
		dispatchKeys = append(dispatchKeys, key)
	}
	sort.Slice(dispatchKeys, func(i, j int) bool {
		if dispatchKeys[i].method == dispatchKeys[j].method {
			return dispatchKeys[i].code < dispatchKeys[j].code
		}
		return dispatchKeys[i].method < dispatchKeys[j].method
	})
	for _, key := range dispatchKeys {
		fmt.Fprintf(&b, "a2a_dispatch_total{method=\"%s\",code=\"%s\"} %d\n",
			escape(key.method), escape(key.code), c.dispatches[key])
	}

	b.WriteString("# HELP a2a_dispatch_retries_total Attempts repeated after a timeout.\n")
	b.WriteString("# TYPE a2a_dispatch_retries_total counter\n")
	writeCounters(&b, "a2a_dispatch_retries_total", c.retries)

	b.WriteString("# HELP a2a_cache_hits_total Tasks answered from the result cache.\n")
	b.WriteString("# TYPE a2a_cache_hits_total counter\n")
	writeCounters(&b, "a2a_cache_hits_total", c.cacheHits)

	b.WriteString("# HELP a2a_dispatch_duration_seconds Task handling duration in seconds.\n")
	b.WriteString("# TYPE a2a_dispatch_duration_seconds histogram\n")
	methods := make([]string, 0, len(c.dispatchLatency))
	for method := range c.dispatchLatency {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	for _, method := range methods {
		c.writeHistogram(&b, "a2a_dispatch_duration_seconds", fmt.Sprintf("method=\"%s\"", escape(method)), c.dispatchLatency[method])
	}

	b.WriteString("# HELP a2a_http_requests_total Total number of HTTP requests processed.\n")
	b.WriteString("# TYPE a2a_http_requests_total counter\n")
	httpKeys := make([]httpKey, 0, len(c.requests))
	for key := range c.requests {
		httpKeys = append(httpKeys, key)
	}
	sort.Slice(httpKeys, func(i, j int) bool {
		a, z := httpKeys[i], httpKeys[j]
		if a.handler != z.handler {
			return a.handler < z.handler
		}
		if a.method != z.method {
			return a.method < z.method
		}
		return a.code < z.code
	})
	for _, key := range httpKeys {
		fmt.Fprintf(&b, "a2a_http_requests_total{handler=\"%s\",method=\"%s\",code=\"%s\"} %d\n",
			escape(key.handler), escape(key.method), escape(key.code), c.requests[key])
	}

	b.WriteString("# HELP a2a_http_request_duration_seconds HTTP request duration in seconds.\n")
	b.WriteString("# TYPE a2a_http_request_duration_seconds histogram\n")
	routes := make([]routeKey, 0, len(c.requestLatency))
	for key := range c.requestLatency {
		routes = append(routes, key)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].handler == routes[j].handler {
			return routes[i].method < routes[j].method
		}
		return routes[i].handler < routes[j].handler
	})
	for _, key := range routes {
		labels := fmt.Sprintf("handler=\"%s\",method=\"%s\"", escape(key.handler), escape(key.method))
		c.writeHistogram(&b, "a2a_http_request_duration_seconds", labels, c.requestLatency[key])
	}

	return b.String()
}

func writeCounters(b *strings.Builder, name string, values map[string]uint64) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(b, "%s{method=\"%s\"} %d\n", name, escape(key), values[key])
	}
}

func (c *Collector) writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	for idx, bound := range c.buckets {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%s\"} %d\n", name, labels, formatFloat(bound), h.counts[idx])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, h.count)
	fmt.Fprintf(b, "%s_sum{%s} %s\n", name, labels, formatFloat(h.sum))
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, h.count)
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
