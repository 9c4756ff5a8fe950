// Package metrics exposes allocation metrics through Prometheus.
//
// A TrackingAllocator wraps any memory.Allocator and reports to a
// Collector: live bytes as a gauge, and counters of allocations, frees and
// failed allocations. The Collector is itself a prometheus.Collector.
//
// # Basic Usage
//
//	c := metrics.NewCollector("strata")
//	prometheus.MustRegister(c)
//
//	memory.SetDefaultAllocator(metrics.NewTrackingAllocator(memory.DefaultAllocator(), c))
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajitpratap0/strata/pkg/memory"
)

// Collector groups the allocation metrics of one namespace.
type Collector struct {
	allocatedBytes prometheus.Gauge
	allocations    prometheus.Counter
	frees          prometheus.Counter
	failures       prometheus.Counter
}

// NewCollector creates unregistered metrics named <namespace>_memory_*.
func NewCollector(namespace string) *Collector {
	return &Collector{
		allocatedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "allocated_bytes",
			Help:      "Bytes currently held by buffers.",
		}),
		allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "allocations_total",
			Help:      "Buffers that acquired memory.",
		}),
		frees: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "frees_total",
			Help:      "Buffers that released their memory.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "allocation_failures_total",
			Help:      "Allocations or reallocations the underlying allocator refused.",
		}),
	}
}

func (c *Collector) metrics() []prometheus.Collector {
	return []prometheus.Collector{c.allocatedBytes, c.allocations, c.frees, c.failures}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics() {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.metrics() {
		m.Collect(ch)
	}
}

// Register registers c with reg, or with the default registerer when reg is
// nil.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(c)
}

// TrackingAllocator forwards to another allocator and records what passes
// through it.
type TrackingAllocator struct {
	inner     memory.Allocator
	collector *Collector
	live      int64
}

// NewTrackingAllocator wraps inner, which defaults to memory.DefaultAllocator.
func NewTrackingAllocator(inner memory.Allocator, c *Collector) *TrackingAllocator {
	if inner == nil {
		inner = memory.DefaultAllocator()
	}
	return &TrackingAllocator{inner: inner, collector: c}
}

// Reallocate implements memory.Allocator.
func (a *TrackingAllocator) Reallocate(old []byte, oldSize, newSize int64) []byte {
	out := a.inner.Reallocate(old, oldSize, newSize)
	switch {
	case newSize <= 0:
		if old != nil {
			a.released(oldSize)
		}
	case out == nil:
		a.collector.failures.Inc()
	case old == nil:
		a.collector.allocations.Inc()
		a.add(newSize)
	default:
		a.add(newSize - oldSize)
	}
	return out
}

// Free implements memory.Allocator.
func (a *TrackingAllocator) Free(buf []byte, size int64) {
	a.inner.Free(buf, size)
	if buf != nil {
		a.released(size)
	}
}

func (a *TrackingAllocator) released(size int64) {
	a.collector.frees.Inc()
	a.add(-size)
}

func (a *TrackingAllocator) add(delta int64) {
	atomic.AddInt64(&a.live, delta)
	a.collector.allocatedBytes.Add(float64(delta))
}

// LiveBytes returns the bytes allocated through a and not yet freed.
func (a *TrackingAllocator) LiveBytes() int64 {
	return atomic.LoadInt64(&a.live)
}
