// Package compute defines the device boundary of the analysis cluster.
//
// An Engine binds one compute device to one numerical kernel; the two
// concrete capabilities are random-walk return-probability estimation
// (DimensionEngine) and Metropolis vacuum sampling (SamplingEngine).
// A Pool partitions ready engines by role for the cluster to consume.
//
// The CPU engines in this package are reference implementations of the
// same contract accelerator backends satisfy; the cluster never calls
// two methods concurrently on one engine, so engines need no internal
// locking.
package compute
