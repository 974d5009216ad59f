// Package cluster dispatches lattice snapshots from the simulation loop
// onto a pool of dedicated compute devices without blocking the producer.
//
// Each Worker owns one device-bound engine and guarantees at most one job
// in flight on it; the Orchestrator scans for idle workers under a
// short-held lock and runs each job on its own goroutine. Completed
// results land in an append-only ResultStore and fire a per-role
// callback. Sampling workers carry a geometric temperature ladder for
// parallel tempering.
//
// Shutdown is terminal: it cancels the shared context, joins every job
// goroutine, and only then releases the devices, so a device is never
// freed while a kernel may still touch it.
package cluster
