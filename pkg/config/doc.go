// Package config loads the YAML configuration of programs built on strata.
//
// A Config selects the default validation level, the allocator behind
// buffers (the Go heap, a size-bucketed pool, or an arrow-go allocator),
// compression of buffer bodies, logging and Prometheus metrics.
//
// # Loading
//
//	cfg, err := config.Load("strata.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Fields missing from the file keep the values of Default. Load validates
// the result.
//
// # Environment Variable Substitution
//
// ${VAR_NAME} anywhere in the file is replaced by the value of the
// environment variable before parsing; unset variables become empty.
//
//	memory:
//	  allocator: ${STRATA_ALLOCATOR}
//
// # Allocators
//
//	alloc, collector, err := cfg.NewAllocator()
//	if collector != nil {
//		prometheus.MustRegister(collector)
//	}
//	memory.SetDefaultAllocator(alloc)
package config
