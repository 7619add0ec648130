// Package storage implements the pluggable backend a PSCO-typed parameter
// resolves its persistent identifier against. BoltPSCOStore uses a
// bucket-per-entity JSON marshal/unmarshal pattern, narrowed to the single
// psco_locations bucket this domain needs. NoopBackend implements the
// same interface for the case of no storage configuration: its Init and
// Finish succeed, and its lookups and updates return
// types.ErrStorageBackend.
package storage
