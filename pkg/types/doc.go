// Package types defines the shared data model for the runtime: data
// identifiers and versions, access modes, tagged-variant parameters, the
// task state machine, placement scores, and worker/register shapes. It has
// no dependency on any other fluxrun package.
package types
