// Package compute provides the execution backend for the solver's
// data-parallel passes.
//
// Every pass over particles or grid nodes is expressed as a range [0, n)
// split into chunks:
//
//	backend := compute.GetBackend()
//	err := backend.ParallelFor(ctx, len(particles), 256, func(start, end int) error {
//	    for i := start; i < end; i++ { ... }
//	    return nil
//	})
//
// Ranges shorter than the minimum chunk run serially on the caller's
// goroutine. Worker goroutines are bounded by an errgroup limit.
package compute
