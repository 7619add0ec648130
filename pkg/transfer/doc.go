// Package transfer defines the pluggable interface the worker data manager
// calls to pull a parameter's value onto a worker. Concrete remote
// transports (SSH, NIO, cloud object storage) are not implemented here;
// this package ships only the local and in-memory implementations used by
// single-host deployments and tests.
package transfer
